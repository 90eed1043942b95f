package ocr_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"studynotes/internal/ocr"
)

// Example demonstrates recognizing a photo of handwritten notes with Cloud Vision.
func Example() {
	// Load .env file (using godotenv in main)
	// This should be done in your main() function:
	//
	// if err := godotenv.Load(); err != nil {
	//     log.Printf("Warning: Could not load .env file: %v", err)
	// }

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Credentials are read from GOOGLE_CREDENTIALS or GOOGLE_APPLICATION_CREDENTIALS
	engine, err := ocr.NewVisionEngine(ctx, []string{"en"})
	if err != nil {
		log.Fatalf("Failed to create OCR engine: %v", err)
	}
	defer engine.Close()

	result, err := engine.RecognizeImage(ctx, "whiteboard.jpg")
	if err != nil {
		log.Fatalf("Failed to recognize image: %v", err)
	}

	fmt.Printf("Recognized text (%d characters):\n%s\n", len(result.Text), result.Text)
	fmt.Printf("Confidence: %.1f%%, languages: %s\n", result.Confidence*100, strings.Join(result.LanguageCodes, ", "))
}

// Example_errorHandling demonstrates matching OCR failures against the sentinel errors.
func Example_errorHandling() {
	ctx := context.Background()

	engine, err := ocr.NewVisionEngine(ctx, nil)
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			log.Fatalf("Please set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")
		}
		log.Fatalf("Failed to create OCR engine: %v", err)
	}
	defer engine.Close()

	_, err = engine.RecognizeImage(ctx, "page-1.png")
	switch {
	case err == nil:
		fmt.Println("ok")
	case errors.Is(err, ocr.ErrImageTooLarge):
		log.Printf("Image is too large. Maximum size is 20MB.")
	case errors.Is(err, ocr.ErrUnreadableImage):
		log.Printf("The file could not be read as an image.")
	default:
		log.Printf("OCR failed: %v", err)
	}
}
