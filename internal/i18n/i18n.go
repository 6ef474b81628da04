package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

const (
	LocaleZH = "zh-CN"
	LocaleEN = "en-US"
)

const localeQueryKey = "lang"

var supportedTags = []language.Tag{
	language.SimplifiedChinese,
	language.AmericanEnglish,
}

var localeByTag = map[language.Tag]string{
	language.SimplifiedChinese: LocaleZH,
	language.AmericanEnglish:   LocaleEN,
}

var matcher = language.NewMatcher(supportedTags)

// ResolveLocale 解析请求语言：?lang= 优先，其次 Accept-Language，默认中文
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return LocaleZH
	}
	if explicit := strings.TrimSpace(c.Query(localeQueryKey)); explicit != "" {
		return NormalizeLocale(explicit)
	}
	header := strings.TrimSpace(c.GetHeader("Accept-Language"))
	if header == "" {
		return LocaleZH
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return LocaleZH
	}
	_, index, _ := matcher.Match(tags...)
	return localeByTag[supportedTags[index]]
}

// NormalizeLocale 将任意语言标签归一到支持的站点语言
func NormalizeLocale(raw string) string {
	tag, err := language.Parse(strings.TrimSpace(raw))
	if err != nil {
		return LocaleZH
	}
	_, index, _ := matcher.Match(tag)
	return localeByTag[supportedTags[index]]
}

// T 翻译消息 key，缺失时回退到中文，再缺失返回 key 本身
func T(locale, key string) string {
	if messages, ok := catalog[locale]; ok {
		if msg, ok := messages[key]; ok {
			return msg
		}
	}
	if msg, ok := catalog[LocaleZH][key]; ok {
		return msg
	}
	return key
}

// Sprintf 翻译后按参数格式化
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}
