package domain

// MaxRetries is the highest retry count a submission may carry and still be
// processed. It applies to both the payment and the shipping step.
const MaxRetries = 3

// ShouldDeadLetter decides whether a submission with the given retry count
// gives up on the step. Counts 0..3 proceed; the fifth attempt dead-letters.
func ShouldDeadLetter(retryCount int) bool {
	return retryCount > MaxRetries
}
