package battle

import (
	"hash/fnv"
	"math/rand"
)

// RandomSource 战斗随机源
// 随机性必须显式传入，不允许依赖全局随机状态；
// 同一种子必须产生完全相同的掷骰序列。
type RandomSource interface {
	// Roll 掷一个faces面的骰子，返回[1, faces]
	Roll(faces int) int
}

// seededSource 基于种子字符串的确定性随机源
type seededSource struct {
	r *rand.Rand
}

// NewSeededSource 从种子字符串创建确定性随机源
func NewSeededSource(seed string) RandomSource {
	h := fnv.New64a()
	h.Write([]byte(seed))
	return &seededSource{
		r: rand.New(rand.NewSource(int64(h.Sum64()))),
	}
}

// Roll 掷骰
func (s *seededSource) Roll(faces int) int {
	return s.r.Intn(faces) + 1
}
