package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/comprehend/types"
	"github.com/sirupsen/logrus"
)

// ComprehendAPI is the subset of the Comprehend client used here.
type ComprehendAPI interface {
	DetectPiiEntities(ctx context.Context, params *comprehend.DetectPiiEntitiesInput,
		optFns ...func(*comprehend.Options)) (*comprehend.DetectPiiEntitiesOutput, error)
}

// ComprehendDetector detects PII through the AWS Comprehend service.
type ComprehendDetector struct {
	client   ComprehendAPI
	language string
	types    TypeSet
	queries  int
	log      *logrus.Entry
}

// NewComprehendDetector builds a cloud detector. The types set filters the
// service's results; an empty set admits everything the service returns.
func NewComprehendDetector(client ComprehendAPI, language string, requested []EntityType) *ComprehendDetector {
	if language == "" {
		language = "en"
	}
	var set TypeSet
	if len(requested) > 0 {
		set = make(TypeSet, len(requested))
		for _, t := range requested {
			set[t] = true
		}
	}
	return &ComprehendDetector{
		client:   client,
		language: language,
		types:    set,
		log:      logrus.WithField("component", "comprehend"),
	}
}

// NewComprehendClient constructs a Comprehend client for the given region
// using the default AWS credential chain.
func NewComprehendClient(ctx context.Context, region string) (*comprehend.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return comprehend.NewFromConfig(cfg), nil
}

// Name returns the backend identifier.
func (d *ComprehendDetector) Name() Method { return MethodCloud }

// Detect calls DetectPiiEntities and maps the response into the shared
// Entity shape. Every call increments the per-document query counter used
// for cost estimation.
func (d *ComprehendDetector) Detect(ctx context.Context, text string) ([]Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	d.queries++
	out, err := d.client.DetectPiiEntities(ctx, &comprehend.DetectPiiEntitiesInput{
		Text:         aws.String(text),
		LanguageCode: types.LanguageCode(d.language),
	})
	if err != nil {
		return nil, fmt.Errorf("detect pii entities: %w", err)
	}

	var entities []Entity
	for _, e := range out.Entities {
		typ := EntityType(e.Type)
		if d.types != nil && !d.types.Allows(typ) {
			continue
		}
		begin := int(aws.ToInt32(e.BeginOffset))
		end := int(aws.ToInt32(e.EndOffset))
		if begin < 0 || end > len(text) || begin >= end {
			d.log.WithFields(logrus.Fields{"begin": begin, "end": end}).
				Warn("dropping entity with out-of-range offsets")
			continue
		}
		entities = append(entities, Entity{
			Type:  typ,
			Text:  text[begin:end],
			Score: float64(aws.ToFloat32(e.Score)),
			Start: runeOffset(text, begin),
			End:   runeOffset(text, end),
		})
	}
	return entities, nil
}

// TakeQueries returns the number of service calls made since the last call
// and resets the counter.
func (d *ComprehendDetector) TakeQueries() int {
	n := d.queries
	d.queries = 0
	return n
}
