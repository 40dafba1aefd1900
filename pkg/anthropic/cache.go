package anthropic

// BuildCachedSystemBlocks constructs system content blocks with a cache
// breakpoint. Every extraction call shares the same system prompt, so the
// breakpoint lets repeated calls within a run read it from cache.
func BuildCachedSystemBlocks(text, ttl string) []SystemBlock {
	if text == "" {
		return nil
	}
	cc := &CacheControl{TTL: ttl}
	return []SystemBlock{{Text: text, CacheControl: cc}}
}
