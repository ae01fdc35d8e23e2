package dom

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sync"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageTag is a placeholder image. Assigning a source decodes it
// asynchronously and then fires the ready or error callback exactly once.
// Mutable
type ImageTag struct {
	mu       sync.Mutex
	src      string
	width    int
	height   int
	format   string
	complete bool
	err      error
	onLoad   func()
	onError  func(error)
}

// NewImageTag returns an empty image placeholder.
func NewImageTag() *ImageTag {
	return &ImageTag{}
}

// OnLoad sets the ready callback.
func (t *ImageTag) OnLoad(fn func()) {
	t.mu.Lock()
	t.onLoad = fn
	t.mu.Unlock()
}

// OnError sets the decode failure callback.
func (t *ImageTag) OnError(fn func(error)) {
	t.mu.Lock()
	t.onError = fn
	t.mu.Unlock()
}

// Load assigns src to the tag and decodes data in the background.
func (t *ImageTag) Load(src string, data []byte) {
	t.mu.Lock()
	t.src = src
	t.complete = false
	t.err = nil
	t.mu.Unlock()

	go t.decode(data)
}

func (t *ImageTag) decode(data []byte) {
	var err error
	cfg, format, decodeErr := image.DecodeConfig(bytes.NewReader(data))
	switch {
	case len(data) == 0:
		err = errors.New("empty image data")
	case decodeErr != nil:
		err = fmt.Errorf("decoding image: %w", decodeErr)
	}

	t.mu.Lock()
	if err == nil {
		t.width, t.height, t.format = cfg.Width, cfg.Height, format
	}
	t.complete = err == nil
	t.err = err
	onLoad, onError := t.onLoad, t.onError
	t.mu.Unlock()

	if err != nil {
		if onError != nil {
			onError(err)
		}
		return
	}
	if onLoad != nil {
		onLoad()
	}
}

// Src returns the assigned source URI.
func (t *ImageTag) Src() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.src
}

// Complete reports whether the image decoded successfully.
func (t *ImageTag) Complete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.complete
}

// Size returns the decoded dimensions.
func (t *ImageTag) Size() (width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width, t.height
}

// Format returns the decoded image format name (e.g. "png").
func (t *ImageTag) Format() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.format
}

// Err returns the decode error, if any.
func (t *ImageTag) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *ImageTag) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.complete {
		return "image (pending)"
	}
	return fmt.Sprintf("image %s %dx%d", t.format, t.width, t.height)
}
