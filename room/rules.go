package room

import "time"

// Rules 一局比赛的参数
type Rules struct {
	EntryFee        int64         // 入场费，奖池 = EntryFee * PlayersPerMatch
	PlayersPerMatch int           // 固定三人
	TopLevel        int           // 顶层，爬过即获胜
	DoorsPerLevel   int           // 每层门数，只有一扇是安全门
	StartDelay      time.Duration // 满员后到开局的延迟
	BribeBonus      float64       // 每次贿赂对错门的补救概率
}

// DefaultRules mirrors the testnet deployment: 1 GORBA entry, 3 players,
// 10 levels of 3 doors, 2s countdown, +10% per bribe.
func DefaultRules() Rules {
	return Rules{
		EntryFee:        1,
		PlayersPerMatch: 3,
		TopLevel:        10,
		DoorsPerLevel:   3,
		StartDelay:      2 * time.Second,
		BribeBonus:      0.10,
	}
}
