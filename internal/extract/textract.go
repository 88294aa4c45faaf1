package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/sirupsen/logrus"
)

const (
	// Backoff before the single retry of a failed service call. Signature
	// analysis is the heavier call and recovers faster from throttling.
	signatureRetryBackoff = 3 * time.Second
	plainTextRetryBackoff = 5 * time.Second
)

// TextractAPI is the subset of the Textract client used by the extractor.
type TextractAPI interface {
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput,
		optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput,
		optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// TextractExtractor extracts page text through the AWS Textract service.
type TextractExtractor struct {
	client TextractAPI
	log    *logrus.Entry

	// DetectSignatures switches between AnalyzeDocument with the SIGNATURES
	// feature and the cheaper DetectDocumentText call.
	DetectSignatures bool

	// sleep is replaceable in tests so retry backoffs do not slow them down.
	sleep func(time.Duration)
}

// NewTextractExtractor builds an extractor from an existing client.
func NewTextractExtractor(client TextractAPI, detectSignatures bool) *TextractExtractor {
	return &TextractExtractor{
		client:           client,
		DetectSignatures: detectSignatures,
		log:              logrus.WithField("component", "textract"),
		sleep:            time.Sleep,
	}
}

// NewTextractClient constructs a Textract client for the given region using
// the default AWS credential chain.
func NewTextractClient(ctx context.Context, region string) (*textract.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return textract.NewFromConfig(cfg), nil
}

// Name returns the backend identifier.
func (e *TextractExtractor) Name() Method { return MethodTextract }

// ExtractPage analyses one page image. A transient failure is retried
// exactly once after a fixed backoff; a second failure is surfaced as a
// page-level error.
func (e *TextractExtractor) ExtractPage(ctx context.Context, in PageInput) (*Result, error) {
	blocks, queries, err := e.analyse(ctx, in.ImageBytes, in.Page)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", ErrPageFailed, in.Page, err)
	}

	res := ParseBlocks(blocks, in.Page, in.PageWidth, in.PageHeight)
	res.CloudQueries = queries
	return res, nil
}

func (e *TextractExtractor) analyse(ctx context.Context, image []byte, page int) ([]Block, int, error) {
	queries := 0

	if e.DetectSignatures {
		input := &textract.AnalyzeDocumentInput{
			Document:     &types.Document{Bytes: image},
			FeatureTypes: []types.FeatureType{types.FeatureTypeSignatures},
		}
		queries++
		out, err := e.client.AnalyzeDocument(ctx, input)
		if err != nil {
			e.log.WithError(err).WithField("page", page).
				Warnf("AnalyzeDocument failed, retrying in %s", signatureRetryBackoff)
			e.sleep(signatureRetryBackoff)
			queries++
			out, err = e.client.AnalyzeDocument(ctx, input)
			if err != nil {
				return nil, queries, fmt.Errorf("analyze document: %w", err)
			}
		}
		return convertSDKBlocks(out.Blocks, page), queries, nil
	}

	input := &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: image},
	}
	queries++
	out, err := e.client.DetectDocumentText(ctx, input)
	if err != nil {
		e.log.WithError(err).WithField("page", page).
			Warnf("DetectDocumentText failed, retrying in %s", plainTextRetryBackoff)
		e.sleep(plainTextRetryBackoff)
		queries++
		out, err = e.client.DetectDocumentText(ctx, input)
		if err != nil {
			return nil, queries, fmt.Errorf("detect document text: %w", err)
		}
	}
	return convertSDKBlocks(out.Blocks, page), queries, nil
}

// convertSDKBlocks normalizes SDK response blocks into the canonical schema,
// stamping the page number onto each block the way the cached bulk output
// carries it.
func convertSDKBlocks(blocks []types.Block, page int) []Block {
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		cb := Block{
			ID:         aws.ToString(b.Id),
			BlockType:  string(b.BlockType),
			Text:       aws.ToString(b.Text),
			TextType:   string(b.TextType),
			Confidence: float64(aws.ToFloat32(b.Confidence)),
			Page:       page,
		}
		if b.Geometry != nil && b.Geometry.BoundingBox != nil {
			bb := b.Geometry.BoundingBox
			cb.Geometry.BoundingBox = BoundingBox{
				Left:   float64(bb.Left),
				Top:    float64(bb.Top),
				Width:  float64(bb.Width),
				Height: float64(bb.Height),
			}
		}
		for _, rel := range b.Relationships {
			cb.Relationships = append(cb.Relationships, Relationship{
				Type: string(rel.Type),
				IDs:  rel.Ids,
			})
		}
		out = append(out, cb)
	}
	return out
}
