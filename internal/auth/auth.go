package auth

import "strconv"

// Service answers whether a chat or user may talk to the bot. The allow-list
// is static for the lifetime of the process; an empty list allows nobody.
type Service struct {
	allowed map[string]struct{}
}

func New(ids []string) *Service {
	s := &Service{allowed: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id == "" {
			continue
		}
		s.allowed[id] = struct{}{}
	}
	return s
}

// IsAuthorized reports whether either the chat or the user is whitelisted.
func (s *Service) IsAuthorized(chatID, userID int64) bool {
	if _, ok := s.allowed[strconv.FormatInt(chatID, 10)]; ok {
		return true
	}
	_, ok := s.allowed[strconv.FormatInt(userID, 10)]
	return ok
}
