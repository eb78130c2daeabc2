package gemini

import (
	"fmt"
	"strings"
)

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature        float64      `json:"temperature,omitempty"`
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

type predictLongRunningRequest struct {
	Instances  []videoInstance  `json:"instances"`
	Parameters *videoParameters `json:"parameters,omitempty"`
}

type videoInstance struct {
	Prompt string      `json:"prompt"`
	Image  *videoImage `json:"image,omitempty"`
}

type videoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type videoParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type operationResponse struct {
	Name     string         `json:"name"`
	Done     bool           `json:"done"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
			RaiMediaFilteredCount   int      `json:"raiMediaFilteredCount"`
			RaiMediaFilteredReasons []string `json:"raiMediaFilteredReasons"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

func (o operationResponse) decode() Operation {
	op := Operation{Name: o.Name, Done: o.Done}

	if o.Response != nil {
		for _, s := range o.Response.GenerateVideoResponse.GeneratedSamples {
			if uri := strings.TrimSpace(s.Video.URI); uri != "" {
				op.VideoURI = uri
				break
			}
		}
	}

	if o.Error != nil {
		msg := strings.TrimSpace(o.Error.Message)
		if msg == "" {
			msg = fmt.Sprintf("video job failed with code %d", o.Error.Code)
		}
		op.Error = msg
		op.Done = true
	}

	if op.Done && op.Error == "" && op.VideoURI == "" {
		op.Error = "video job finished without a video"
		if o.Response != nil {
			if reasons := o.Response.GenerateVideoResponse.RaiMediaFilteredReasons; len(reasons) > 0 {
				op.Error = "video filtered: " + strings.Join(reasons, "; ")
			}
		}
	}

	if !op.Done && o.Metadata != nil {
		if p, ok := o.Metadata["progressPercent"]; ok {
			op.Progress = fmt.Sprintf("%v%%", p)
		}
	}
	return op
}
