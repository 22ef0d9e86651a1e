package game

// BlurLevels is the number of discrete blur tiers. Tier 0 is a sharp
// image, tier BlurLevels-1 the strongest blur.
const BlurLevels = 7

// BlurLevel maps quiz progress to a blur tier. The tier is the number of
// unanswered questions, clamped to [0, BlurLevels-1], so it never grows as
// currentIndex grows.
func BlurLevel(currentIndex, totalQuestions int) int {
	remaining := totalQuestions - currentIndex
	return min(max(remaining, 0), BlurLevels-1)
}
