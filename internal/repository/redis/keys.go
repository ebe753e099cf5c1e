package redisrepo

import "fmt"

const ns = "ceylontix:v1"

func KeyEvent(eventID string) string {
	return fmt.Sprintf("%s:event:%s", ns, eventID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemCheckout(idemKey string) string {
	return fmt.Sprintf("%s:idem:checkout:%s", ns, idemKey)
}

func ChannelEventsChanged() string {
	return ns + ":events:changed"
}
