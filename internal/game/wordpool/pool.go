// Package wordpool 提供对局使用的固定词库
package wordpool

import (
	"bufio"
	_ "embed"
	"errors"
	"math/rand/v2"
	"strings"
	"unicode/utf8"
)

//go:embed words.txt
var defaultWords string

// ErrExhausted 词库中所有单词都已被排除
var ErrExhausted = errors.New("wordpool: every word in the pool is excluded")

// Pool 静态词库，并发安全（构造后只读）
type Pool struct {
	words []string
	intN  func(n int) int
}

// New 创建词库
// 长度（按字符计）不在 [minLen, maxLen] 内的单词会被过滤，重复单词（忽略大小写）只保留一个
func New(words []string, minLen, maxLen int) *Pool {
	seen := make(map[string]struct{}, len(words))
	filtered := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		n := utf8.RuneCountInString(w)
		if n < minLen || (maxLen > 0 && n > maxLen) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		filtered = append(filtered, w)
	}
	return &Pool{words: filtered, intN: rand.IntN}
}

// Default 使用内置词库创建
func Default(minLen, maxLen int) *Pool {
	return New(ParseList(defaultWords), minLen, maxLen)
}

// DefaultWords 返回内置词库原始列表（用于写入数据库）
func DefaultWords() []string {
	return ParseList(defaultWords)
}

// ParseList 解析每行一个单词的文本，忽略空行和 # 注释
func ParseList(text string) []string {
	var words []string
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words
}

// Size 返回词库大小
func (p *Pool) Size() int {
	return len(p.words)
}

// Pick 从未被排除的单词中等概率选择一个
func (p *Pool) Pick(excluding []string) (string, error) {
	excluded := make(map[string]struct{}, len(excluding))
	for _, w := range excluding {
		excluded[strings.ToLower(w)] = struct{}{}
	}

	eligible := make([]string, 0, len(p.words))
	for _, w := range p.words {
		if _, ok := excluded[w]; !ok {
			eligible = append(eligible, w)
		}
	}
	if len(eligible) == 0 {
		return "", ErrExhausted
	}
	return eligible[p.intN(len(eligible))], nil
}
