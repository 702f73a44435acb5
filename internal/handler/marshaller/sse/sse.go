// Package ssemarshaller frames events for text/event-stream and parses them back.
package ssemarshaller

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/handler/marshaller"
)

const ContentType = "text/event-stream"

// maxEventSize bounds a single data block.
const maxEventSize = 1 << 20

// WriteEvent writes ev as "event: <type>\ndata: <json>\n\n".
func WriteEvent(w io.Writer, ev event.Eventer) error {
	data, err := marshaller.MarshallDeliveryEvent(ev)
	if err != nil {
		return err
	}
	typ, _ := marshaller.TypeOf(ev.GetKind())

	var buf bytes.Buffer
	buf.Grow(len(data) + len(typ) + 16)
	buf.WriteString("event: ")
	buf.WriteString(string(typ))
	buf.WriteString("\ndata: ")
	buf.Write(data)
	buf.WriteString("\n\n")

	_, err = w.Write(buf.Bytes())
	return err
}

// Message is one dispatched SSE block.
type Message struct {
	Event string
	ID    string
	Data  []byte
}

// Reader splits a text/event-stream body into messages.
type Reader struct {
	scanner *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxEventSize)
	return &Reader{scanner: sc}
}

// Next blocks until a complete message is dispatched. It returns io.EOF when
// the stream ends between messages and io.ErrUnexpectedEOF when it ends inside one.
func (r *Reader) Next() (*Message, error) {
	var (
		msg     Message
		data    []string
		started bool
	)

	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		if line == "" {
			if len(data) == 0 {
				// blank line with no data: reset, nothing to dispatch
				msg, started = Message{}, false
				continue
			}
			msg.Data = []byte(strings.Join(data, "\n"))
			if msg.Event == "" {
				msg.Event = "message"
			}
			return &msg, nil
		}
		if strings.HasPrefix(line, ":") {
			continue // comment
		}

		started = true
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			msg.Event = value
		case "data":
			data = append(data, value)
		case "id":
			msg.ID = value
		case "retry":
		default:
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("sse read: %w", err)
	}
	if started {
		return nil, io.ErrUnexpectedEOF
	}
	return nil, io.EOF
}
