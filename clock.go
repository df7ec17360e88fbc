package bmscore

import "time"

// SamplesToNS converts a sample count at the given sampling rate to an
// elapsed duration, truncating to whole nanoseconds.
func SamplesToNS(samples int64, samplingRate uint32) time.Duration {
	return time.Duration(samples) * time.Second / time.Duration(samplingRate)
}

// NSToSamples converts a duration to a whole number of samples at the given
// sampling rate, rounding to the nearest sample rather than truncating.
//
// Rounding (instead of truncating, as SamplesToNS does) is what keeps the
// two functions exact inverses of each other for every non-negative sample
// count: SamplesToNS(n) always lands within one nanosecond-fraction of
// n/rate seconds that is far smaller than half a sample period at any
// realistic device sampling rate, so rounding the reverse conversion
// recovers n exactly instead of occasionally landing one sample short.
func NSToSamples(d time.Duration, samplingRate uint32) int64 {
	rate := int64(samplingRate)
	num := int64(d) * rate
	q := num / int64(time.Second)
	r := num % int64(time.Second)
	if 2*r >= int64(time.Second) {
		q++
	}
	return q
}
