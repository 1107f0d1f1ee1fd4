// Package ocr turns a receipt image into a flat text block using the Cloud
// Vision document-text API.
package ocr

import (
	"context"
	"strings"

	vision "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dvloznov/expense-ledger/internal/domain"
)

// MaxImageBytes is the largest payload accepted before calling the
// recognizer. Oversized images are rejected locally.
const MaxImageBytes = 10 << 20 // 10 MB

// Extractor recognizes text in receipt images. The Vision client is injected
// at construction so tests can exercise everything up to the network call.
type Extractor struct {
	client *vision.ImageAnnotatorClient
}

// NewExtractor wraps an injected Vision client.
func NewExtractor(client *vision.ImageAnnotatorClient) *Extractor {
	return &Extractor{client: client}
}

// Extract runs one document-text-detection call for the image and returns
// the recognized lines joined by newlines, in the order the service reported
// them. It never retries; the mapped failure reason tells the caller whether
// retrying the whole request is sensible.
func (e *Extractor) Extract(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", &domain.ExtractionError{Stage: domain.StageOCR, Reason: domain.ReasonEmptyInput}
	}
	if len(image) > MaxImageBytes {
		return "", &domain.ExtractionError{Stage: domain.StageOCR, Reason: domain.ReasonPayloadTooBig}
	}
	if e.client == nil {
		return "", &domain.ExtractionError{Stage: domain.StageOCR, Reason: domain.ReasonUnconfigured}
	}

	annotation, err := e.client.DetectDocumentText(ctx, &visionpb.Image{Content: image}, nil)
	if err != nil {
		return "", mapVisionError(err)
	}

	text := strings.Join(assembleLines(annotation), "\n")
	if strings.TrimSpace(text) == "" {
		return "", &domain.ExtractionError{Stage: domain.StageOCR, Reason: domain.ReasonEmptyOutput}
	}

	return text, nil
}

// assembleLines walks the annotation's symbol stream and rebuilds line-level
// fragments using the detected breaks, preserving service order.
func assembleLines(annotation *visionpb.TextAnnotation) []string {
	if annotation == nil {
		return nil
	}

	var lines []string
	var line strings.Builder

	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			lines = append(lines, s)
		}
		line.Reset()
	}

	for _, page := range annotation.GetPages() {
		for _, block := range page.GetBlocks() {
			for _, para := range block.GetParagraphs() {
				for _, word := range para.GetWords() {
					for _, symbol := range word.GetSymbols() {
						line.WriteString(symbol.GetText())
						switch symbol.GetProperty().GetDetectedBreak().GetType() {
						case visionpb.TextAnnotation_DetectedBreak_SPACE,
							visionpb.TextAnnotation_DetectedBreak_SURE_SPACE:
							line.WriteString(" ")
						case visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE,
							visionpb.TextAnnotation_DetectedBreak_LINE_BREAK:
							flush()
						}
					}
				}
			}
		}
	}
	flush()

	return lines
}

// mapVisionError translates gRPC status codes from the recognizer into the
// closed reason set.
func mapVisionError(err error) error {
	reason := domain.ReasonGeneric

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			reason = domain.ReasonUnauthorized
		case codes.InvalidArgument:
			reason = domain.ReasonMalformedInput
		case codes.ResourceExhausted:
			reason = domain.ReasonThrottled
		}
	}

	return &domain.ExtractionError{Stage: domain.StageOCR, Reason: reason, Err: err}
}
