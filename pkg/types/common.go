package types

const (
	NO_PAGINATION = 0
)

type WsEventType int32

const (
	WS_EVENT_UNKNOWN            WsEventType = 0
	WS_EVENT_SOURCES_SNAPSHOT   WsEventType = 1   // 来源列表全量快照
	WS_EVENT_SOURCE_CHANGED     WsEventType = 2   // 单条来源变更
	WS_EVENT_NOTEBOOK_CHANGED   WsEventType = 3   // 笔记本状态变更
	WS_EVENT_VIEWER_SCROLL      WsEventType = 10  // 查看器滚动定位
	WS_EVENT_SYSTEM_ONSUBSCRIBE WsEventType = 300 // topic 成功订阅
	WS_EVENT_OTHERS             WsEventType = 400 // 其他未定义事件
)

const (
	LANGUAGE_EN_KEY = "en"
	LANGUAGE_CN_KEY = "zh-CN"
)
