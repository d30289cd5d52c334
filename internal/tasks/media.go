// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package tasks

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/sashabaranov/go-openai"

	apperrors "taskgate/internal/errors"
)

const defaultJPEGQuality = 50

// TesseractOCR recognizes text with the local Tesseract library.
type TesseractOCR struct {
	Languages []string
}

func (t TesseractOCR) Recognize(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close()

	if len(t.Languages) > 0 {
		if err := client.SetLanguage(t.Languages...); err != nil {
			return "", apperrors.Wrap(apperrors.CodeUnsupported, "ocr language unavailable", err)
		}
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", apperrors.Wrap(apperrors.CodeInvalidArgument, "ocr could not load image", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr failed: %w", err)
	}
	return text, nil
}

func (e *Env) extractCreditCard(ctx context.Context, args map[string]interface{}) (*Result, error) {
	path, err := e.Guard.Resolve("credit-card.png")
	if err != nil {
		return nil, err
	}
	if _, err := e.statInput(path); err != nil {
		return nil, err
	}

	text, err := e.OCR.Recognize(ctx, path)
	if err != nil {
		return nil, err
	}
	number := digitsOnly(text)
	if number == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "no card number found in credit-card.png")
	}

	if _, err := e.writeOutput("credit-card.txt", []byte(number)); err != nil {
		return nil, err
	}
	return Success("Credit card number extracted"), nil
}

func digitsOnly(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, text)
}

func (e *Env) compressImage(ctx context.Context, args map[string]interface{}) (*Result, error) {
	var in compressImageArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if err := requireStrings("input_image", in.InputImage, "output_image", in.OutputImage); err != nil {
		return nil, err
	}
	quality := int(in.Quality)
	if quality == 0 {
		quality = defaultJPEGQuality
	}
	if quality < 1 || quality > 100 {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "quality must be between 1 and 100, got %d", quality)
	}
	if in.MaxWidth < 0 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "max_width must not be negative")
	}

	input, err := e.Guard.Resolve(in.InputImage)
	if err != nil {
		return nil, err
	}
	if _, err := e.Guard.Resolve(in.OutputImage); err != nil {
		return nil, err
	}
	if _, err := e.statInput(input); err != nil {
		return nil, err
	}

	img, err := imaging.Open(input)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "failed to decode image", err)
	}
	if width := int(in.MaxWidth); width > 0 && img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	output, err := e.writeOutput(in.OutputImage, buf.Bytes())
	if err != nil {
		return nil, err
	}
	result := Success(fmt.Sprintf("Image saved as %s", in.OutputImage))
	result.Output = output
	return result, nil
}

func (e *Env) transcribeAudio(ctx context.Context, args map[string]interface{}) (*Result, error) {
	var in transcribeArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if err := requireStrings("audio_file", in.AudioFile); err != nil {
		return nil, err
	}
	if in.Output == "" {
		in.Output = "transcription.txt"
	}

	path, err := e.Guard.Resolve(in.AudioFile)
	if err != nil {
		return nil, err
	}
	if _, err := e.Guard.Resolve(in.Output); err != nil {
		return nil, err
	}
	if _, err := e.statInput(path); err != nil {
		return nil, err
	}
	if e.AI == nil {
		return nil, apperrors.New(apperrors.CodeUnsupported, "no transcription client configured")
	}

	resp, err := e.AI.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.Settings.TranscriptionModel,
		FilePath: path,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstream, "transcription request failed", err)
	}

	output, err := e.writeOutput(in.Output, []byte(resp.Text))
	if err != nil {
		return nil, err
	}
	result := Success("Transcription saved")
	result.Output = output
	return result, nil
}
