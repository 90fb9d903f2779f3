package game

// Message is sent by explorers to the coordinator
type Message interface {
	message()
}

// LinksFound carries the relative URLs an explorer saw for the first time
type LinksFound struct {
	Explorer int
	Links    []string
}

func (LinksFound) message() {}
