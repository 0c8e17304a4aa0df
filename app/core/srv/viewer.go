package srv

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/insightslm/insightslm/pkg/viewer"
)

const DefaultViewerIdle = 30 * time.Minute

// ViewerSessions 查看器会话，空闲超时后自动关闭
type ViewerSessions struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

func NewViewerSessions(idle time.Duration) *ViewerSessions {
	c := gocache.New(idle, time.Minute)
	c.OnEvicted(func(_ string, v any) {
		if vw, ok := v.(*viewer.Viewer); ok {
			vw.Close()
		}
	})
	return &ViewerSessions{cache: c}
}

func ApplyViewerSessions(idle time.Duration) ApplyFunc {
	return func(s *Srv) {
		s.viewers = NewViewerSessions(idle)
	}
}

// GetOrCreate 每次访问都会重置空闲时间
func (s *ViewerSessions) GetOrCreate(key string, create func() *viewer.Viewer) *viewer.Viewer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.cache.Get(key); ok {
		s.cache.SetDefault(key, v)
		return v.(*viewer.Viewer)
	}
	v := create()
	s.cache.SetDefault(key, v)
	return v
}

func (s *ViewerSessions) Get(key string) (*viewer.Viewer, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*viewer.Viewer), true
}

// Delete 关闭并移除会话
func (s *ViewerSessions) Delete(key string) {
	s.cache.Delete(key)
}

func (s *ViewerSessions) Count() int {
	return s.cache.ItemCount()
}
