package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/holdno/snowFlakeByGo"

	"github.com/insightslm/insightslm/pkg/errors"
	"github.com/insightslm/insightslm/pkg/i18n"
)

var (
	// IdWorker 全局唯一id生成器实例
	idWorker *snowFlakeByGo.Worker
)

func SetupIDWorker(clusterID int64) {
	idWorker, _ = snowFlakeByGo.NewWorker(clusterID)
}

func GenUniqID() int64 {
	return idWorker.GetId()
}

func GenUniqIDStr() string {
	return strconv.FormatInt(GenUniqID(), 10)
}

func GenRandomID() string {
	return RandomStr(32)
}

// RandomStr 随机字符串
func RandomStr(l int) string {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	seed := "1234567890qwertyuiopasdfghjklzxcvbnmQWERTYUIOPASDFGHJKLZXCVBNM"
	var sb strings.Builder
	sb.Grow(l)
	for i := 0; i < l; i++ {
		sb.WriteByte(seed[r.Intn(len(seed))])
	}
	return sb.String()
}

func MD5(s string) string {
	md5Ctx := md5.New()
	md5Ctx.Write([]byte(s))
	return hex.EncodeToString(md5Ctx.Sum(nil))
}

func BindArgsWithGin(c *gin.Context, req interface{}) error {
	err := c.ShouldBindWith(req, binding.Default(c.Request.Method, c.ContentType()))
	if err != nil {
		return errors.New(fmt.Sprintf("Gin.ShouldBindWith.%s.%s", c.Request.Method, c.Request.URL.Path), i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}
	return nil
}

// Language represents a language and its weight (priority)
type Language struct {
	Tag    string  // Language tag, e.g., "en-US"
	Weight float64 // Weight (priority), default is 1.0
}

var acceptLanguageRe = regexp.MustCompile(`([a-zA-Z\-]+)(?:;q=([0-9\.]+))?`)

// ParseAcceptLanguage parses the Accept-Language header and returns a sorted list of languages by weight.
func ParseAcceptLanguage(header string) []Language {
	if header == "" {
		return []Language{}
	}

	var languages []Language
	for _, match := range acceptLanguageRe.FindAllStringSubmatch(header, -1) {
		weight := 1.0
		if len(match) > 2 && match[2] != "" {
			if parsed, err := strconv.ParseFloat(match[2], 64); err == nil {
				weight = parsed
			}
		}
		languages = append(languages, Language{Tag: match[1], Weight: weight})
	}

	sort.SliceStable(languages, func(i, j int) bool {
		return languages[i].Weight > languages[j].Weight
	})
	return languages
}

// MaskString 保留前后若干字符，中间以 * 替代，用于日志中输出密钥类配置
func MaskString(s string, preLen, postLen int) string {
	runes := []rune(s)
	if len(runes) <= preLen+postLen {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:preLen]) + strings.Repeat("*", len(runes)-preLen-postLen) + string(runes[len(runes)-postLen:])
}

// FileExt 返回文件名的扩展名(不含点)，没有扩展名时返回空字符串
func FileExt(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 || strings.Contains(name[idx:], "/") {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}
