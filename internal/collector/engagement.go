package collector

// Engagement scoring normalizes raw popularity signals into [0,1].
// Both functions are total: any non-negative input combination yields a
// value in range, missing optional signals count as neutral.

// postNormalizer is sized so typical high-engagement posts approach but
// do not exceed 1.0 except by clamping.
const postNormalizer = 10000.0

// commentNormalizer assumes 100 is a good high comment score.
const commentNormalizer = 100.0

// PostEngagement computes the normalized engagement score for a post.
// Comments are weighted twice as heavily as raw score, the upvote ratio
// favors quality, and distinguished/stickied/original content earn boosts.
func PostEngagement(score, numComments int, upvoteRatio float64, distinguished, stickied, originalContent bool) float64 {
	base := float64(score) + 2*float64(numComments)
	weighted := base * upvoteRatio

	if distinguished || stickied {
		weighted *= 1.2
	}
	if originalContent {
		weighted *= 1.1
	}

	return clamp01(weighted / postNormalizer)
}

// CommentEngagement computes the normalized engagement score for a
// comment. Score decays with depth; submitter, distinguished, and awarded
// comments each earn an independent multiplier.
func CommentEngagement(score, depth int, isSubmitter, distinguished, hasAwards bool) float64 {
	if depth < 0 {
		depth = 0
	}
	base := float64(score) / float64(depth+1)

	multiplier := 1.0
	if isSubmitter {
		multiplier *= 1.5
	}
	if distinguished {
		multiplier *= 1.3
	}
	if hasAwards {
		multiplier *= 1.2
	}

	return clamp01(base * multiplier / commentNormalizer)
}

func clamp01(v float64) float64 {
	if v < 0 || v != v { // NaN guard
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
