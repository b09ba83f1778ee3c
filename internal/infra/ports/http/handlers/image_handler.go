package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/TaleRoom/internal/domain/apperr"
	"github.com/qrave1/TaleRoom/internal/domain/models"
	"github.com/qrave1/TaleRoom/internal/infra/ports/http/dto"
	"github.com/qrave1/TaleRoom/internal/usecase"
)

const imageField = "image"

type ImageHandler struct {
	maxBytes int64

	jobUsecase usecase.JobUsecase
}

func NewImageHandler(maxBytes int64, jobUsecase usecase.JobUsecase) *ImageHandler {
	return &ImageHandler{
		maxBytes:   maxBytes,
		jobUsecase: jobUsecase,
	}
}

// Classify отвечает результатом в том же запросе
func (h *ImageHandler) Classify(c echo.Context) error {
	img, err := h.readImage(c)
	if err != nil {
		return errorResponse(c, err)
	}

	res, err := h.jobUsecase.Classify(c.Request().Context(), img)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// Submit ставит задачу в очередь и сразу отдает ее id
func (h *ImageHandler) Submit(c echo.Context) error {
	img, err := h.readImage(c)
	if err != nil {
		return errorResponse(c, err)
	}

	id, err := h.jobUsecase.Submit(c.Request().Context(), img)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusAccepted, dto.JobAcceptedResponse{JobID: id})
}

func (h *ImageHandler) Result(c echo.Context) error {
	view, err := h.jobUsecase.Poll(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, view)
}

func (h *ImageHandler) readImage(c echo.Context) (models.Image, error) {
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.maxBytes)

	fh, err := c.FormFile(imageField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return models.Image{}, apperr.Newf(apperr.InvalidImage, "image exceeds %d bytes", h.maxBytes)
		}

		return models.Image{}, apperr.New(apperr.InvalidImage, "no image found in request")
	}

	f, err := fh.Open()
	if err != nil {
		return models.Image{}, apperr.New(apperr.InvalidImage, "could not read image")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.Image{}, apperr.New(apperr.InvalidImage, "could not read image")
	}

	img := models.Image{Filename: fh.Filename, Data: data}

	return img, img.Validate()
}
