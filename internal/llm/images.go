package llm

import (
	"bytes"
	"context"
	"encoding/base64"

	"github.com/sashabaranov/go-openai"
)

const (
	grokImageModel   = "grok-2-image"
	imageRenderModel = openai.CreateImageModelGptImage1
)

// GenerateImageURL asks the text provider's image model for a hosted image.
func (c *OpenAI) GenerateImageURL(ctx context.Context, prompt string) (Result, error) {
	if c.text == nil {
		return Result{}, callErrorf(KindAuthMissing, "GROK_API_KEY is not set")
	}
	resp, err := c.text.CreateImage(ctx, openai.ImageRequest{
		Model:          grokImageModel,
		Prompt:         prompt,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return Result{}, classify(err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return Result{}, callErrorf(KindEmptyResponse, "image response contained no data")
	}
	return Result{ImageURL: resp.Data[0].URL, RevisedPrompt: resp.Data[0].RevisedPrompt}, nil
}

// GenerateImageBytes renders an image with gpt-image-1 at the given quality
// tier and returns the decoded bytes.
func (c *OpenAI) GenerateImageBytes(ctx context.Context, prompt, quality string) (Result, error) {
	if c.image == nil {
		return Result{}, callErrorf(KindAuthMissing, "OPENAI_API_KEY is not set")
	}
	resp, err := c.image.CreateImage(ctx, openai.ImageRequest{
		Model:      imageRenderModel,
		Prompt:     prompt,
		N:          1,
		Size:       openai.CreateImageSize1024x1024,
		Quality:    quality,
		Moderation: openai.CreateImageModerationLow,
	})
	if err != nil {
		return Result{}, classify(err)
	}
	return decodeImageData(resp)
}

// EditImage rewrites a source image according to prompt. Only one source
// image is supported; callers attach the first one.
func (c *OpenAI) EditImage(ctx context.Context, image []byte, prompt, quality string) (Result, error) {
	if c.image == nil {
		return Result{}, callErrorf(KindAuthMissing, "OPENAI_API_KEY is not set")
	}
	resp, err := c.image.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:   openai.WrapReader(bytes.NewReader(image), "image.png", "image/png"),
		Model:   imageRenderModel,
		Prompt:  prompt,
		N:       1,
		Size:    openai.CreateImageSize1024x1024,
		Quality: quality,
	})
	if err != nil {
		return Result{}, classify(err)
	}
	return decodeImageData(resp)
}

func decodeImageData(resp openai.ImageResponse) (Result, error) {
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return Result{}, callErrorf(KindEmptyResponse, "image response contained no data")
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return Result{}, callErrorf(KindUnexpected, "Unexpected error: %T - %v", err, err)
	}
	return Result{ImageBytes: raw}, nil
}
