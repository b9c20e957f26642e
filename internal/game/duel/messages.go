package duel

import "fmt"

// 对局提示文本（客户端可见）
const (
	ReasonGameStarting   = "The game is starting!"
	ReasonAllRounds      = "All rounds completed."
	ReasonTimeUp         = "Time is up! Moving to the next round."
	ReasonOutOfChances   = "You have run out of chances!"
	ReasonWordsExhausted = "No more words are available for this match."
	ReasonPlayersLeft    = "All players left the room."
	ReasonRoomExpired    = "The room expired before the game started."
	ReasonShutdown       = "The server is shutting down."
)

func correctGuessMessage(name string) string {
	return fmt.Sprintf("%s guessed correctly!", name)
}

func incorrectGuessMessage(remaining int) string {
	return fmt.Sprintf("Incorrect. You have %d chances left.", remaining)
}
