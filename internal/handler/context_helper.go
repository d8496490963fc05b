package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/middleware"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// bindJSON decodes the request body, writing a VALIDATION_ERROR when it is malformed.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func pageParams(c *gin.Context) (search string, page, size int) {
	search = strings.TrimSpace(c.Query("search"))
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		size = v
	}
	return search, page, size
}

func withCacheMeta(c *gin.Context, hit bool) map[string]interface{} {
	middleware.SetCacheHit(c, hit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{"cache_hit": hit}
	}
	return meta
}
