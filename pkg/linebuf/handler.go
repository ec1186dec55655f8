package linebuf

// Handler consumes completed lines in the order their newline was seen
type Handler interface {
	OnLine(line string) error
}

// HandlerFunc adapts a plain function to Handler
type HandlerFunc func(line string) error

// OnLine calls f(line)
func (f HandlerFunc) OnLine(line string) error {
	return f(line)
}

// Collector is a Handler that records every line it receives
type Collector struct {
	Lines []string
}

// OnLine appends line to Lines
func (c *Collector) OnLine(line string) error {
	c.Lines = append(c.Lines, line)
	return nil
}
