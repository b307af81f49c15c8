package status

// Bucket groups labels for visual treatment.
type Bucket string

const (
	Positive Bucket = "positive"
	Neutral  Bucket = "neutral"
	Negative Bucket = "negative"
	Unknown  Bucket = "outline"
)

func BucketOf(l Label) Bucket {
	if b, ok := known[l]; ok {
		return b
	}
	return Unknown
}

// View is what list endpoints attach to each row.
type View struct {
	Label  Label  `json:"derived_status"`
	Bucket Bucket `json:"status_bucket"`
}

func ViewOf(tag Tag, f Fields) View {
	l := Derive(tag, f)
	return View{Label: l, Bucket: BucketOf(l)}
}
