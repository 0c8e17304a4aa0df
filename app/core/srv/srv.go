package srv

import (
	"net/http"
	"time"

	"github.com/insightslm/insightslm/pkg/playback"
)

type Srv struct {
	webhook Webhook
	titles  TitleGenerator
	hub     *Hub
	viewers *ViewerSessions
	audio   playback.Loader
}

type ApplyFunc func(s *Srv)

func SetupSrvs(opts ...ApplyFunc) *Srv {
	a := &Srv{}

	for _, opt := range opts {
		opt(a)
	}
	if a.hub == nil {
		a.hub = NewHub(nil)
	}
	if a.viewers == nil {
		a.viewers = NewViewerSessions(DefaultViewerIdle)
	}
	if a.audio == nil {
		// 音频按流读取，只限制响应头的等待时间
		a.audio = playback.HTTPLoader{Client: &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 30 * time.Second,
		}}}
	}
	return a
}

// ApplyAudioLoader 替换音频下载实现
func ApplyAudioLoader(l playback.Loader) ApplyFunc {
	return func(s *Srv) {
		s.audio = l
	}
}

func (s *Srv) Webhook() Webhook {
	return s.webhook
}

// TitleGenerator 未配置 OpenAI 时返回 nil
func (s *Srv) TitleGenerator() TitleGenerator {
	return s.titles
}

func (s *Srv) Hub() *Hub {
	return s.hub
}

func (s *Srv) Viewers() *ViewerSessions {
	return s.viewers
}

func (s *Srv) AudioLoader() playback.Loader {
	return s.audio
}
