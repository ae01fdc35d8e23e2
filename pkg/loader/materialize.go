package loader

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"preload/pkg/common"
	"preload/pkg/dom"
	"preload/pkg/transport"
)

// responseAttempt reads one response field. Fields that do not apply to
// the handle's state report an error instead of a value.
type responseAttempt func() (any, error)

// extractResponse returns the first value produced by the typed response,
// the text response, or the XML response, in that order.
func (l *NetworkLoader) extractResponse() any {
	var attempts []responseAttempt
	if tr, ok := l.handle.(transport.TypedResponder); ok {
		attempts = append(attempts, tr.Response)
	}
	attempts = append(attempts, func() (any, error) {
		text, err := l.handle.ResponseText()
		if err != nil {
			return nil, err
		}
		return text, nil
	})
	if xr, ok := l.handle.(transport.XMLResponder); ok {
		attempts = append(attempts, xr.ResponseXML)
	}
	return firstResponse(attempts...)
}

func firstResponse(attempts ...responseAttempt) any {
	for _, attempt := range attempts {
		v, err := attempt()
		if err != nil {
			slog.Debug("Response field unavailable", "error", err)
			continue
		}
		if v != nil {
			return v
		}
	}
	return nil
}

// materialize converts the raw payload into the representation for the
// item type. It reports done=false when completion waits on an external
// ready signal.
func (l *NetworkLoader) materialize(item *common.Item, raw any) (bool, error) {
	switch item.Type {
	case common.TypeImage:
		tag, ok := item.Tag.(*dom.ImageTag)
		if !ok || tag == nil {
			return false, fmt.Errorf("%w: image items need a *dom.ImageTag", ErrMissingTag)
		}
		l.setResult(raw, tag)
		tag.OnLoad(func() { l.post(l.handleTagLoad) })
		tag.OnError(func(err error) { l.post(func() { l.handleTagError(err) }) })
		tag.Load(item.Src, asBytes(raw))
		return false, nil

	case common.TypeJavaScript:
		l.setResult(raw, dom.NewScriptTag(item.Src, asText(raw)))

	case common.TypeCSS:
		tag, ok := item.Tag.(*dom.StyleTag)
		if !ok || tag == nil {
			return false, fmt.Errorf("%w: css items need a *dom.StyleTag", ErrMissingTag)
		}
		if err := tag.Inject(asText(raw)); err != nil {
			return false, fmt.Errorf("injecting style: %w", err)
		}
		l.setResult(raw, tag)

	case common.TypeXML:
		doc, err := dom.ParseXML(asText(raw), dom.MIMETypeXML)
		if err != nil {
			return false, err
		}
		l.setResult(raw, doc)

	case common.TypeSVG:
		tag, ok := item.Tag.(*dom.SVGTag)
		if !ok || tag == nil {
			return false, fmt.Errorf("%w: svg items need a *dom.SVGTag", ErrMissingTag)
		}
		doc, err := dom.ParseSVG(asText(raw))
		if err != nil {
			return false, err
		}
		tag.Graft(doc.Root)
		l.setResult(raw, tag)

	case common.TypeJSON:
		text := asText(raw)
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			slog.Debug("JSON parse failed, keeping text", "src", item.Src, "error", err)
			l.setResult(raw, text)
			break
		}
		l.setResult(raw, v)

	default:
		l.setResult(raw, raw)
	}
	return true, nil
}

func isBinary(t common.ItemType) bool {
	return t == common.TypeBinary || t == common.TypeImage
}

func asText(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func asBytes(raw any) []byte {
	switch v := raw.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	return nil
}
