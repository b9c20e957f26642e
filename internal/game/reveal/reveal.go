// Package reveal 计算单词中对双方可见的字母位置
package reveal

import (
	"math/rand/v2"
	"slices"
	"unicode/utf8"
)

// InitialReveal 从单词的所有位置中无放回地等概率选出 count 个
// 使用 Fisher–Yates 洗牌后取前 count 个，结果按位置升序返回
func InitialReveal(word string, count int) []int {
	return initialReveal(word, count, rand.IntN)
}

func initialReveal(word string, count int, intN func(int) int) []int {
	n := utf8.RuneCountInString(word)
	count = min(max(count, 0), n)

	positions := make([]int, n)
	for i := range positions {
		positions[i] = i
	}
	shuffle(positions, intN)

	picked := slices.Clone(positions[:count])
	slices.Sort(picked)
	return picked
}

// shuffle Fisher–Yates
func shuffle(s []int, intN func(int) int) {
	for i := len(s) - 1; i > 0; i-- {
		j := intN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// Next 从尚未揭示的位置中等概率选择一个，全部揭示时返回 false
func Next(word string, revealed []int) (int, bool) {
	hidden := Hidden(word, revealed)
	if len(hidden) == 0 {
		return 0, false
	}
	return hidden[rand.IntN(len(hidden))], true
}

// Hidden 返回尚未揭示的位置
func Hidden(word string, revealed []int) []int {
	n := utf8.RuneCountInString(word)
	shown := make([]bool, n)
	for _, idx := range revealed {
		if idx >= 0 && idx < n {
			shown[idx] = true
		}
	}

	hidden := make([]int, 0, n)
	for i, ok := range shown {
		if !ok {
			hidden = append(hidden, i)
		}
	}
	return hidden
}

// Mask 返回逐位置的揭示标记
func Mask(word string, revealed []int) []bool {
	mask := make([]bool, utf8.RuneCountInString(word))
	for _, idx := range revealed {
		if idx >= 0 && idx < len(mask) {
			mask[idx] = true
		}
	}
	return mask
}

// LetterAt 返回指定位置的字母
func LetterAt(word string, idx int) string {
	runes := []rune(word)
	if idx < 0 || idx >= len(runes) {
		return ""
	}
	return string(runes[idx])
}
