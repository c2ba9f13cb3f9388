package anthropic

// BuildCachedSystemBlocks constructs a system block with a prompt-cache
// breakpoint. The advisor's system prompt (persona plus knowledge base) is
// identical for every lead in a batch, so after the first call the rest read
// it from the provider's cache. ttl is "5m" or "1h"; empty uses the
// provider default.
func BuildCachedSystemBlocks(text, ttl string) []SystemBlock {
	if text == "" {
		return nil
	}
	return []SystemBlock{
		{
			Text: text,
			CacheControl: &CacheControl{
				TTL: ttl,
			},
		},
	}
}
