package chrono

import "time"

var shanghai *time.Location

func init() {
	var err error
	shanghai, err = time.LoadLocation("Asia/Shanghai")
	if err != nil {
		// some minimal containers ship without tzdata, the platform does not
		// observe daylight saving so a fixed offset is equivalent
		shanghai = time.FixedZone("CST", 8*60*60)
	}
}

// Platform returns the timezone the article platform stamps its data in.
func Platform() *time.Location {
	return shanghai
}

// TimeAPI is what anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in the platform timezone.
	Now() time.Time
}

type StandardTime struct{}

func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().In(shanghai)
}

// FixedTime always returns the same instant, for tests.
type FixedTime struct {
	At time.Time
}

func (f FixedTime) Now() time.Time {
	return f.At.In(shanghai)
}

// FromUnix converts a unix timestamp as sent by the platform (ex. a comment's
// create_time) into a time in the platform timezone.
func FromUnix(seconds int64) time.Time {
	return time.Unix(seconds, 0).In(shanghai)
}
