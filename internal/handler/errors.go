package handler

import (
	"errors"
	"net/http"

	"backend/pkg/apperror"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeServiceError maps the service error taxonomy onto HTTP statuses and
// renders the structured error list when one is present.
func writeServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperror.KindOf(err) {
	case apperror.KindValidation, apperror.KindInsufficientStock, apperror.KindOverReturn:
		status = http.StatusBadRequest
	case apperror.KindNotFound:
		status = http.StatusNotFound
	case apperror.KindConflict:
		status = http.StatusConflict
	}

	var list apperror.List
	if errors.As(err, &list) {
		c.JSON(status, response.ErrorList(status, err.Error(), list.Errors()))
		return
	}
	var single *apperror.Error
	if errors.As(err, &single) {
		c.JSON(status, response.ErrorList(status, err.Error(), []*apperror.Error{single}))
		return
	}

	c.JSON(status, response.Error(status, err.Error()))
}
