package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTextract struct {
	analyzeCalls int
	detectCalls  int
	failFirst    int
	blocks       []types.Block
}

func (f *fakeTextract) AnalyzeDocument(_ context.Context, _ *textract.AnalyzeDocumentInput,
	_ ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error) {
	f.analyzeCalls++
	if f.analyzeCalls <= f.failFirst {
		return nil, errors.New("throttled")
	}
	return &textract.AnalyzeDocumentOutput{Blocks: f.blocks}, nil
}

func (f *fakeTextract) DetectDocumentText(_ context.Context, _ *textract.DetectDocumentTextInput,
	_ ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error) {
	f.detectCalls++
	if f.detectCalls <= f.failFirst {
		return nil, errors.New("throttled")
	}
	return &textract.DetectDocumentTextOutput{Blocks: f.blocks}, nil
}

func sdkLineBlock(text string) types.Block {
	return types.Block{
		Id:         aws.String("id-1"),
		BlockType:  types.BlockTypeLine,
		Text:       aws.String(text),
		Confidence: aws.Float32(99),
		Geometry: &types.Geometry{
			BoundingBox: &types.BoundingBox{Left: 0.1, Top: 0.1, Width: 0.3, Height: 0.05},
		},
	}
}

func newTestExtractor(client TextractAPI, signatures bool) (*TextractExtractor, *[]time.Duration) {
	e := NewTextractExtractor(client, signatures)
	var slept []time.Duration
	e.sleep = func(d time.Duration) { slept = append(slept, d) }
	return e, &slept
}

func TestTextractRetriesOnceThenSucceeds(t *testing.T) {
	fake := &fakeTextract{failFirst: 1, blocks: []types.Block{sdkLineBlock("hello")}}
	e, slept := newTestExtractor(fake, true)

	res, err := e.ExtractPage(context.Background(), PageInput{
		Page: 1, ImageBytes: []byte("img"), PageWidth: 1000, PageHeight: 1000,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, fake.analyzeCalls)
	assert.Equal(t, 2, res.CloudQueries, "both calls count toward cost")
	require.Len(t, *slept, 1)
	assert.Equal(t, signatureRetryBackoff, (*slept)[0], "signature calls back off 3s")
	require.Len(t, res.Lines, 1)
	assert.Equal(t, "hello", res.Lines[0].Text)
}

func TestTextractSecondFailureIsPageError(t *testing.T) {
	fake := &fakeTextract{failFirst: 2}
	e, _ := newTestExtractor(fake, true)

	_, err := e.ExtractPage(context.Background(), PageInput{Page: 4, ImageBytes: []byte("img")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPageFailed)
	assert.Equal(t, 2, fake.analyzeCalls, "exactly one retry")
}

func TestTextractPlainTextPath(t *testing.T) {
	fake := &fakeTextract{failFirst: 1, blocks: []types.Block{sdkLineBlock("plain")}}
	e, slept := newTestExtractor(fake, false)

	res, err := e.ExtractPage(context.Background(), PageInput{
		Page: 1, ImageBytes: []byte("img"), PageWidth: 500, PageHeight: 500,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, fake.analyzeCalls)
	assert.Equal(t, 2, fake.detectCalls)
	require.Len(t, *slept, 1)
	assert.Equal(t, plainTextRetryBackoff, (*slept)[0], "plain text calls back off 5s")
	assert.Equal(t, "plain", res.Lines[0].Text)
}
