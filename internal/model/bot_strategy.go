package model

// Names accepted by BOT_STRATEGY
const (
	BotStrategyHeuristic = "heuristic"
	BotStrategyRandom    = "random"
)

// ValidBotStrategies returns all valid bot strategy names
func ValidBotStrategies() []string {
	return []string{BotStrategyHeuristic, BotStrategyRandom}
}
