package server

import (
	"math/rand/v2"
)

// 昵称词库
var (
	adjectives = []string{
		"Brave", "Clever", "Happy", "Mystic", "Swift",
		"Gentle", "Lucky", "Mighty", "Calm", "Lively",
		"Witty", "Dashing", "Quiet", "Bold", "Sunny",
		"Shiny", "Curious", "Proud", "Sleepy", "Cool",
	}

	nouns = []string{
		"Panda", "Tiger", "Lion", "Monkey", "Rabbit",
		"Fox", "Dolphin", "Penguin", "Koala", "Corgi",
		"Shiba", "Owl", "Hamster", "Hedgehog", "Squirrel",
		"Raccoon", "Otter", "Alpaca", "Falcon", "Badger",
	}
)

// GenerateNickname 生成随机昵称
func GenerateNickname() string {
	return adjectives[rand.IntN(len(adjectives))] + nouns[rand.IntN(len(nouns))]
}
