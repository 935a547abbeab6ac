package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/sirupsen/logrus"

	"github.com/kdduha/property-inspector/backend/internal/apperror"
	"github.com/kdduha/property-inspector/backend/internal/config"
	"github.com/kdduha/property-inspector/backend/internal/imageproc"
	"github.com/kdduha/property-inspector/backend/internal/metrics"
	"github.com/kdduha/property-inspector/backend/internal/models"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
}

type imagePipeline interface {
	Process(ctx context.Context, inputs []imageproc.Input) ([]imageproc.Result, error)
}

// AnalyzeService turns request images into one inference call. It holds no
// per-request state and is shared by all handlers.
type AnalyzeService struct {
	logger       *logrus.Logger
	openaiClient openai.Client
	pipeline     imagePipeline
	modelName    string
	maxTokens    int64
	cache        Cache
}

func NewAnalyzeService(
	logger *logrus.Logger,
	openaiClient openai.Client,
	pipeline imagePipeline,
	cfg config.OpenAIConfig,
) *AnalyzeService {
	return &AnalyzeService{
		logger:       logger,
		openaiClient: openaiClient,
		pipeline:     pipeline,
		modelName:    cfg.Model,
		maxTokens:    cfg.MaxTokens,
	}
}

func (s *AnalyzeService) SetCacheClient(cache Cache) {
	s.cache = cache
}

func (s *AnalyzeService) Analyze(ctx context.Context, inputs []imageproc.Input) (*models.AnalyzeResponse, error) {
	req, err := s.prepare(ctx, inputs)
	if err != nil {
		return nil, err
	}
	key := s.cacheKey(req)

	if cached, ok := s.cacheGet(ctx, key); ok {
		metrics.InferenceRequestsTotal("ok", "cache")
		return &models.AnalyzeResponse{Result: FormatResult(cached)}, nil
	}

	resp, err := s.openaiClient.Chat.Completions.New(ctx, s.buildOpenAIReq(req))
	if err != nil {
		metrics.InferenceRequestsTotal("error", "remote")
		return nil, apperror.InferenceFailure(err)
	}
	if len(resp.Choices) == 0 {
		metrics.InferenceRequestsTotal("error", "remote")
		return nil, apperror.InferenceFailure(errors.New("response has no choices"))
	}
	metrics.InferenceRequestsTotal("ok", "remote")

	text := resp.Choices[0].Message.Content
	s.logger.WithFields(logrus.Fields{
		"model":             resp.Model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"finish_reason":     resp.Choices[0].FinishReason,
	}).Info("analysis completed")

	s.cacheSet(ctx, key, text)
	return &models.AnalyzeResponse{Result: FormatResult(text)}, nil
}

func (s *AnalyzeService) AnalyzeStream(
	ctx context.Context,
	inputs []imageproc.Input,
) (<-chan models.StreamChunk, error) {
	req, err := s.prepare(ctx, inputs)
	if err != nil {
		return nil, err
	}
	key := s.cacheKey(req)

	ch := make(chan models.StreamChunk, 1)

	if cached, ok := s.cacheGet(ctx, key); ok {
		metrics.InferenceRequestsTotal("ok", "cache")
		ch <- models.StreamChunk{Delta: FormatResult(cached), Done: true}
		close(ch)
		return ch, nil
	}

	params := s.buildOpenAIReq(req)

	go func() {
		defer close(ch)

		sendOrStop := func(msg models.StreamChunk) bool {
			select {
			case ch <- msg:
				return true
			case <-ctx.Done():
				return false
			}
		}

		stream := s.openaiClient.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		var (
			builder strings.Builder
			format  streamFormatter
		)

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}

			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}

			builder.WriteString(delta)
			if out := format.Push(delta); out != "" {
				if !sendOrStop(models.StreamChunk{Delta: out}) {
					return
				}
			}
		}
		if tail := format.Flush(); tail != "" {
			if !sendOrStop(models.StreamChunk{Delta: tail}) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			metrics.InferenceRequestsTotal("error", "remote")
			sendOrStop(models.StreamChunk{Err: apperror.InferenceFailure(err)})
			return
		}
		metrics.InferenceRequestsTotal("ok", "remote")

		s.cacheSet(ctx, key, builder.String())
		sendOrStop(models.StreamChunk{Done: true})
	}()

	return ch, nil
}

func (s *AnalyzeService) prepare(ctx context.Context, inputs []imageproc.Input) (models.AnalysisRequest, error) {
	images, err := s.pipeline.Process(ctx, inputs)
	if err != nil {
		return models.AnalysisRequest{}, err
	}

	req, err := BuildAnalysisRequest(images, s.maxTokens)
	if err != nil {
		return models.AnalysisRequest{}, err
	}
	metrics.InferenceImagesPerRequest(len(req.Messages))

	s.logger.WithFields(logrus.Fields{
		"images": len(req.Messages),
		"model":  s.modelName,
	}).Debug("analysis request assembled")
	return req, nil
}

func (s *AnalyzeService) cacheGet(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	cached, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).Warn("cache get failed")
		return "", false
	}
	if found {
		s.logger.Debug("served from cache")
	}
	return cached, found
}

func (s *AnalyzeService) cacheSet(ctx context.Context, key, value string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.WithError(err).Warn("cache set failed")
	}
}

func (s *AnalyzeService) cacheKey(req models.AnalysisRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%s", s.modelName, req.MaxOutputTokens, req.SystemPrompt)
	for _, m := range req.Messages {
		fmt.Fprintf(h, "\x00%s\x00%s", m.Text, m.ImageURL)
	}
	return hex.EncodeToString(h.Sum(nil))
}
