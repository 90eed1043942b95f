package ocr

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"studynotes/internal/logger"
)

// MaxImageSizeBytes is the maximum image size accepted by the Vision API (20MB)
const MaxImageSizeBytes = 20 * 1024 * 1024

// ImageAnnotator is the subset of the Vision client used by VisionEngine.
type ImageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// VisionEngine implements Engine using Google Cloud Vision document text detection.
type VisionEngine struct {
	client    ImageAnnotator
	languages []string
	log       zerolog.Logger
}

// NewVisionEngine creates a Vision engine with credentials from environment.
// It expects either GOOGLE_CREDENTIALS JSON or a GOOGLE_APPLICATION_CREDENTIALS path,
// falling back to application default credentials.
func NewVisionEngine(ctx context.Context, languages []string) (*VisionEngine, error) {
	const op = "NewVisionEngine"

	var client *vision.ImageAnnotatorClient
	var err error

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return NewVisionEngineWithClient(client, languages), nil
}

// NewVisionEngineWithClient creates a Vision engine with an explicit client (for testing).
func NewVisionEngineWithClient(client ImageAnnotator, languages []string) *VisionEngine {
	return &VisionEngine{
		client:    client,
		languages: languages,
		log:       logger.WithComponent("ocr-vision"),
	}
}

// Name implements Engine.
func (v *VisionEngine) Name() string { return "vision" }

// RecognizeImage sends the image inline to the Vision API and returns its full text annotation.
func (v *VisionEngine) RecognizeImage(ctx context.Context, imagePath string) (*Result, error) {
	const op = "RecognizeImage"
	startTime := time.Now()

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, WrapOCRError(op, ErrUnreadableImage, err.Error())
	}
	if len(data) == 0 {
		return nil, WrapOCRError(op, ErrUnreadableImage, "empty image file")
	}
	if len(data) > MaxImageSizeBytes {
		return nil, WrapOCRError(op, ErrImageTooLarge, fmt.Sprintf("file size: %d bytes", len(data)))
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{LanguageHints: v.languages},
			},
		},
	}

	v.log.Debug().
		Str("image", imagePath).
		Int("size", len(data)).
		Msg("Sending image to Vision API")

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.GetResponses()) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	imageResp := resp.GetResponses()[0]
	if imageResp.GetError() != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", imageResp.GetError().GetMessage()))
	}

	result := processVisionResponse(imageResp)
	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	return result, nil
}

// processVisionResponse collects text, average page confidence and detected languages.
// An image without text is not an error: handwriting pages are often blank.
func processVisionResponse(resp *visionpb.AnnotateImageResponse) *Result {
	annotation := resp.GetFullTextAnnotation()
	if annotation == nil {
		return &Result{}
	}

	var confidenceSum float32
	languageSet := make(map[string]bool)
	pages := annotation.GetPages()
	for _, page := range pages {
		confidenceSum += page.GetConfidence()
		for _, lang := range page.GetProperty().GetDetectedLanguages() {
			if code := lang.GetLanguageCode(); code != "" {
				languageSet[code] = true
			}
		}
	}

	var avgConfidence float32
	if len(pages) > 0 {
		avgConfidence = confidenceSum / float32(len(pages))
	}

	languages := make([]string, 0, len(languageSet))
	for lang := range languageSet {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	return &Result{
		Text:          annotation.GetText(),
		Confidence:    avgConfidence,
		LanguageCodes: languages,
	}
}

// Close closes the underlying Vision client.
func (v *VisionEngine) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
