package types

// RawField is the mandatory event field holding the generated event body.
const RawField = "_raw"

// Event is a single generated event record.
type Event map[string]string

func (e Event) Raw() string {
	return e[RawField]
}

func NewRawEvent(raw string) Event {
	return Event{RawField: raw}
}

// Item is the unit of work travelling through a dispatch queue. Output items
// name the sample whose bound output plugin flushes Batch. Generator work
// items name the sample to generate Count events for and carry no batch.
type Item struct {
	Plugin string  `json:"plugin"`
	Count  int     `json:"count,omitempty"`
	Batch  []Event `json:"batch,omitempty"`
}

// Size returns the number of events and the total raw byte size of the batch.
func (item *Item) Size() (int, int) {
	bytes := 0
	for _, e := range item.Batch {
		bytes += len(e.Raw())
	}
	return len(item.Batch), bytes
}
