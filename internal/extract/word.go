package extract

import (
	"bytes"

	"code.sajari.com/docconv"
	"github.com/rotisserie/eris"
)

const (
	mimeDoc  = "application/msword"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// extractWord converts a Word document into a single extracted unit. Word
// files carry no page boundaries worth trusting, so the whole body is one
// logical page.
func extractWord(data []byte, legacy bool) ([]ExtractedPage, error) {
	mimeType := mimeDocx
	if legacy {
		mimeType = mimeDoc
	}

	response, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
	if err != nil {
		return nil, eris.Wrap(err, "converting word document")
	}

	return []ExtractedPage{{
		Text:        response.Body,
		Method:      MethodText,
		SourceIndex: 0,
	}}, nil
}
