package rekognition

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
	"github.com/kirillkom/vehicle-checker/internal/infrastructure/resilience"
)

// detector is the part of *rekognition.Client used here.
type detector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

type Recognizer struct {
	client   detector
	executor *resilience.Executor
}

// NewFromRegion loads the default AWS credential chain for region.
func NewFromRegion(ctx context.Context, region string, executor *resilience.Executor) (*Recognizer, error) {
	if strings.TrimSpace(region) == "" {
		return &Recognizer{executor: executor}, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Recognizer{client: rekognition.NewFromConfig(cfg), executor: executor}, nil
}

func New(client detector, executor *resilience.Executor) *Recognizer {
	return &Recognizer{client: client, executor: executor}
}

func (r *Recognizer) CheckConfigured() error {
	if r.client == nil {
		return domain.NewError(domain.KindConfiguration, domain.MsgRecognitionNotConfigured, nil)
	}
	return nil
}

// Recognize joins every detected LINE in reading order and reports their mean
// confidence.
func (r *Recognizer) Recognize(ctx context.Context, img domain.Image) (domain.RecognizedText, error) {
	if err := r.CheckConfigured(); err != nil {
		return domain.RecognizedText{}, err
	}

	input := &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: img.Data},
	}
	var output *rekognition.DetectTextOutput
	call := func(ctx context.Context) error {
		out, err := r.client.DetectText(ctx, input)
		if err != nil {
			return fmt.Errorf("rekognition detect text: %w", err)
		}
		output = out
		return nil
	}

	var err error
	if r.executor != nil {
		err = r.executor.Execute(ctx, "rekognition.detect_text", call, nil)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.RecognizedText{}, err
	}

	var (
		lines []string
		total float64
	)
	for _, detection := range output.TextDetections {
		if detection.Type != types.TextTypesLine {
			continue
		}
		text := strings.TrimSpace(aws.ToString(detection.DetectedText))
		if text == "" {
			continue
		}
		lines = append(lines, text)
		total += float64(aws.ToFloat32(detection.Confidence))
	}
	if len(lines) == 0 {
		return domain.RecognizedText{}, nil
	}
	return domain.RecognizedText{
		Text:       strings.Join(lines, "\n"),
		Confidence: total / float64(len(lines)),
	}, nil
}
