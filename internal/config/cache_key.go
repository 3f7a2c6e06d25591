package config

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ThemeDirectoryKey returns the cache key for the full theme directory
func (r *CacheKeyStruct) ThemeDirectoryKey() string {
	return "practice:themes"
}

var CacheKey = NewCacheKeyStruct()
