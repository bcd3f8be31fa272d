package service

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slugify 将任意字符串规整为小写、ASCII、连字符分隔的 slug：
// NFD 分解后丢弃变音符号，非字母数字折叠为单个连字符，去掉首尾连字符。
func Slugify(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(strings.TrimSpace(s)))

	var b strings.Builder
	pendingHyphen := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// 组合变音符号直接丢弃
			continue
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}

	return b.String()
}

// UniqueSlug 依据存在性判定生成无冲突的 slug：基础 slug 被占用时追加 -1、-2 …
// 直到找到空位。计数器没有上限，与源行为保持一致。
// exists 必须反映调用方事务内的状态，同一请求内重复调用才不会互相踩踏。
func UniqueSlug(candidate string, exists func(slug string) bool) string {
	base := Slugify(candidate)
	if base == "" {
		base = "untitled"
	}

	slug := base
	for counter := 1; exists(slug); counter++ {
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
	return slug
}
