package service

import (
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"github.com/kdduha/property-inspector/backend/internal/apperror"
	"github.com/kdduha/property-inspector/backend/internal/imageproc"
	"github.com/kdduha/property-inspector/backend/internal/models"
)

// BuildAnalysisRequest emits one user message per image, in the order the
// images were supplied.
func BuildAnalysisRequest(images []imageproc.Result, maxTokens int64) (models.AnalysisRequest, error) {
	if len(images) == 0 {
		return models.AnalysisRequest{}, apperror.NoImageProvided()
	}

	messages := make([]models.AnalysisMessage, 0, len(images))
	for _, img := range images {
		messages = append(messages, models.AnalysisMessage{
			Role:     models.RoleUser,
			Text:     imagePrompt,
			ImageURL: img.URL,
		})
	}

	return models.AnalysisRequest{
		SystemPrompt:    systemPrompt,
		Messages:        messages,
		MaxOutputTokens: maxTokens,
	}, nil
}

func (s *AnalyzeService) buildOpenAIReq(req models.AnalysisRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	messages = append(messages, openai.SystemMessage(req.SystemPrompt))

	for _, m := range req.Messages {
		messages = append(messages, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(m.Text),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: m.ImageURL,
			}),
		}))
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(s.modelName),
		Messages: messages,
	}
	if req.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxOutputTokens)
	}
	return params
}
