package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const announcementWriteTimeout = 10 * time.Second

// announcementMessage is a frame of the announcement stream.
type announcementMessage struct {
	Announcement string `json:"announcement"`
}

// handleAnnouncements streams the session's live region over a websocket.
// The stream ends when the client goes away or the session is closed.
func (s *Server) handleAnnouncements(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	// Upgrade writes its own response, so the cookie has to travel in the
	// upgrade headers.
	var header http.Header
	if cookies := w.Header().Values("Set-Cookie"); len(cookies) > 0 {
		header = http.Header{"Set-Cookie": cookies}
	}

	conn, err := s.upgrader.Upgrade(w, r, header)
	if err != nil {
		// Upgrade has already replied to the client
		s.logger.Debug("websocket upgrade failed", "session", sess.ID, "error", err)
		return
	}
	sentences, unsubscribe := sess.Live.Subscribe()
	defer unsubscribe()

	// The reader only detects the client going away; clients never send data.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	defer func() {
		_ = conn.Close() // unblocks the reader
		<-gone
	}()

	if last := sess.Live.Last(); last != "" {
		if err := s.writeAnnouncement(conn, last); err != nil {
			return
		}
	}

	for {
		select {
		case <-gone:
			return
		case text, ok := <-sentences:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(announcementWriteTimeout))
				return
			}
			if err := s.writeAnnouncement(conn, text); err != nil {
				s.logger.Debug("announcement stream ended", "session", sess.ID, "error", err)
				return
			}
		}
	}
}

func (s *Server) writeAnnouncement(conn *websocket.Conn, text string) error {
	if err := conn.SetWriteDeadline(time.Now().Add(announcementWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(announcementMessage{Announcement: text})
}
