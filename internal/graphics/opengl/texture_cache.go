package opengl

import "sync"

// TextureCache loads each texture path once per device.
type TextureCache struct {
	dev *Device

	mu       sync.RWMutex
	textures map[string]*Texture
}

func NewTextureCache(dev *Device) *TextureCache {
	return &TextureCache{dev: dev, textures: make(map[string]*Texture)}
}

// Get returns the cached texture for path, loading it on first use.
func (c *TextureCache) Get(path string) (*Texture, error) {
	c.mu.RLock()
	if tex, ok := c.textures[path]; ok {
		c.mu.RUnlock()
		return tex, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double check locking
	if tex, ok := c.textures[path]; ok {
		return tex, nil
	}

	tex, err := c.dev.LoadTexture(path)
	if err != nil {
		return nil, err
	}
	c.textures[path] = tex
	return tex, nil
}

// Len returns the number of cached textures.
func (c *TextureCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.textures)
}

// Release deletes every cached texture and empties the cache.
func (c *TextureCache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path, tex := range c.textures {
		tex.Release()
		delete(c.textures, path)
	}
}
