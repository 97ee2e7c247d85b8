package utils

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// StrToInt64 converts a string to an int64.
func StrToInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// ParseIDParam reads a positive int64 path parameter. On failure it writes a 400 response and returns false.
func ParseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := StrToInt64(c.Param(name))
	if err != nil || id <= 0 {
		RespondWithError(c, NewAPIError(400, ErrCodeBadRequest, fmt.Sprintf("Invalid %s parameter", name), c.Param(name)))
		return 0, false
	}
	return id, true
}
