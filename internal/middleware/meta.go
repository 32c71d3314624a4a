package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/pkg/middleware/requestid"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

// Keys of the envelope meta block.
const (
	MetaCacheHit  = "cache_hit"
	MetaTimezone  = "timezone"
	MetaUnread    = "unread"
	MetaRequestID = "request_id"
)

// WithResponseMeta seeds the envelope meta with the request id and the zone
// that session dates and HH:MM slot times are expressed in.
func WithResponseMeta(loc *time.Location) gin.HandlerFunc {
	zone := time.UTC.String()
	if loc != nil {
		zone = loc.String()
	}
	return func(c *gin.Context) {
		response.SetMeta(c, MetaTimezone, zone)
		if id := requestid.Value(c); id != "" {
			response.SetMeta(c, MetaRequestID, id)
		}
		c.Next()
	}
}

// SetCacheHit marks whether the payload was served from Redis.
func SetCacheHit(c *gin.Context, hit bool) {
	response.SetMeta(c, MetaCacheHit, hit)
}
