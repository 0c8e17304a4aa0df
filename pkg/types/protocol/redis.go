package protocol

import (
	"strings"
)

const (
	RedisCacheKeyNamespaceSep string = ":"
)

type RedisCacheKeyProjectPrefix string

type RedisCacheKeyDomainPrefix string

const (
	RedisCacheKeyPrefixInsights RedisCacheKeyProjectPrefix = "insights"

	RedisCacheKeyPrefixSemaphore RedisCacheKeyDomainPrefix = "semaphore"
	RedisCacheKeyPrefixLock      RedisCacheKeyDomainPrefix = "lock"
)

func GenRedisCacheKey(p RedisCacheKeyProjectPrefix, d RedisCacheKeyDomainPrefix, fields ...string) string {
	return strings.Join(append([]string{string(p), string(d)}, fields...), RedisCacheKeyNamespaceSep)
}

// GenAudioGenerationSemaphoreKey insights:semaphore:audio_generation
func GenAudioGenerationSemaphoreKey() string {
	return GenRedisCacheKey(RedisCacheKeyPrefixInsights, RedisCacheKeyPrefixSemaphore, "audio_generation")
}

// GenProcessLockKey insights:lock:{job}
func GenProcessLockKey(job string) string {
	return GenRedisCacheKey(RedisCacheKeyPrefixInsights, RedisCacheKeyPrefixLock, job)
}
