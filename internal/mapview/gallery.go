package mapview

import "sync"

// Gallery is the lightbox over the images of one location.
type Gallery struct {
	mu     sync.Mutex
	images []string
	index  int
	open   bool
}

// Open shows images starting at index. An empty list leaves the gallery closed.
func (g *Gallery) Open(images []string, index int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(images) == 0 {
		g.images, g.index, g.open = nil, 0, false
		return
	}
	g.images = append([]string(nil), images...)
	g.index = min(max(index, 0), len(images)-1)
	g.open = true
}

// Close hides the gallery.
func (g *Gallery) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.images, g.index, g.open = nil, 0, false
}

// IsOpen reports whether the gallery is visible.
func (g *Gallery) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// Next moves to the next image. It does not wrap around.
func (g *Gallery) Next() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open || g.index >= len(g.images)-1 {
		return false
	}
	g.index++
	return true
}

// Prev moves to the previous image. It does not wrap around.
func (g *Gallery) Prev() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open || g.index == 0 {
		return false
	}
	g.index--
	return true
}

func (g *Gallery) HasNext() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open && g.index < len(g.images)-1
}

func (g *Gallery) HasPrev() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open && g.index > 0
}

// Current returns the shown image.
func (g *Gallery) Current() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return "", false
	}
	return g.images[g.index], true
}

// Position returns the 1-based index of the shown image and the image count.
func (g *Gallery) Position() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return 0, 0
	}
	return g.index + 1, len(g.images)
}
