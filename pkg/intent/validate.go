package intent

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/teslashibe/go-voiceorder/pkg/order"
)

var (
	replyKeys     = []string{"assistantText", "assistant_text", "message", "reply"}
	selectionKeys = []string{"selections", "items"}
	optionKeys    = []string{"options", "optionChoices", "option_choices"}
)

// Rejection explains why one selection was dropped.
type Rejection struct {
	Index  int
	Reason string
}

// Parse validates raw model output into a Result.
//
// The output must be one JSON object, optionally wrapped in a markdown code
// fence, carrying a reply and/or a selections array. A non-empty "refusal"
// field yields ErrRefused. Anything else unparseable is ErrMalformedResponse.
func Parse(raw []byte) (*Result, []Rejection, error) {
	text := stripFence(raw)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(text, &obj); err != nil {
		return nil, nil, newError(ErrMalformedResponse, "", 0, err)
	}
	if obj == nil {
		return nil, nil, newError(ErrMalformedResponse, "", 0, errors.New("null"))
	}

	if reason, ok := refusal(obj); ok {
		return nil, nil, newError(ErrRefused, "", 0, errors.New(reason))
	}

	res := &Result{Selections: []order.ItemSelection{}}
	found := false

	if v, ok := first(obj, replyKeys); ok {
		found = true
		if !isNull(v) {
			if err := json.Unmarshal(v, &res.AssistantText); err != nil {
				return nil, nil, newError(ErrMalformedResponse, "", 0, errors.New("reply is not a string"))
			}
			res.AssistantText = strings.TrimSpace(res.AssistantText)
		}
	}

	var rejected []Rejection
	if v, ok := first(obj, selectionKeys); ok {
		found = true
		if !isNull(v) {
			var items []json.RawMessage
			if err := json.Unmarshal(v, &items); err != nil {
				return nil, nil, newError(ErrMalformedResponse, "", 0, errors.New("selections is not an array"))
			}
			for i, item := range items {
				sel, reason := parseSelection(item)
				if reason != "" {
					rejected = append(rejected, Rejection{Index: i, Reason: reason})
					continue
				}
				res.Selections = append(res.Selections, sel)
			}
		}
	}

	if !found {
		return nil, nil, newError(ErrMalformedResponse, "", 0, errors.New("no reply or selections"))
	}
	res.Dropped = len(rejected)
	return res, rejected, nil
}

func parseSelection(raw json.RawMessage) (order.ItemSelection, string) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return order.ItemSelection{}, "not an object"
	}

	name, ok := obj["name"].(string)
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return order.ItemSelection{}, "missing name"
	}

	sel := order.ItemSelection{
		Name:     name,
		Quantity: quantity(obj["quantity"]),
	}

	for _, key := range optionKeys {
		opts, ok := obj[key].(map[string]any)
		if !ok {
			continue
		}
		for k, v := range opts {
			cat := order.Category(strings.ToLower(strings.TrimSpace(k)))
			label, isString := v.(string)
			label = strings.TrimSpace(label)
			if !order.IsKnownCategory(cat) || !isString || label == "" {
				continue
			}
			if sel.Options == nil {
				sel.Options = order.Choices{}
			}
			sel.Options[cat] = label
		}
		break
	}

	return sel, ""
}

// quantity returns a positive integer quantity, or 1.
func quantity(v any) int {
	q, ok := v.(float64)
	if !ok || q < 1 || q != math.Trunc(q) || q > math.MaxInt32 {
		return 1
	}
	return int(q)
}

func refusal(obj map[string]json.RawMessage) (string, bool) {
	v, ok := obj["refusal"]
	if !ok {
		return "", false
	}
	var reason string
	if json.Unmarshal(v, &reason) == nil && strings.TrimSpace(reason) != "" {
		return strings.TrimSpace(reason), true
	}
	var flag bool
	if json.Unmarshal(v, &flag) == nil && flag {
		return "declined", true
	}
	return "", false
}

func first(obj map[string]json.RawMessage, keys []string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// stripFence removes a surrounding markdown code fence, if any.
func stripFence(raw []byte) []byte {
	text := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(text, []byte("```")) {
		return text
	}
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		text = text[3:]
	}
	if i := bytes.LastIndex(text, []byte("```")); i >= 0 {
		text = text[:i]
	}
	return bytes.TrimSpace(text)
}
