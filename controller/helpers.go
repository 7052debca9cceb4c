package controller

import (
	"net/http"
	"strconv"
	"strings"

	"cafereview/storage"
	"cafereview/utils"

	"github.com/gin-gonic/gin"
)

// parseID reads the :id path parameter. Ids that cannot exist answer 404,
// the same as ids that do not resolve.
func parseID(c *gin.Context, resource string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.ErrorResponse(c, http.StatusNotFound, resource+" not found")
		return 0, false
	}
	return uint(id), true
}

func readPayload(c *gin.Context) (*utils.Payload, bool) {
	p, err := utils.ReadPayload(c)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return p, true
}

// nullable trims s and maps the empty string to nil.
func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// removeStoredFiles deletes files whose rows are already gone. Failures are
// logged only: the database is the source of truth at this point.
func removeStoredFiles(paths []string) {
	for _, path := range paths {
		if err := storage.Public.Delete(path); err != nil {
			utils.Log.WithError(err).WithField("path", path).Warn("Failed to delete stored file")
			continue
		}
		utils.ImagesDeleted.Inc()
	}
}
