// Package scoring maps an elapsed time to a 0-100 quality score using the
// complementary CDF of a log-normal distribution. The curve is parameterized
// by the time that should score 50 (the median) and the point of diminishing
// returns, which controls how steeply the score falls off.
package scoring
