package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/dto"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const imagesField = "images"

type ItemHandler struct {
	itemService   *services.ItemService
	maxImageBytes int64
}

func NewItemHandler(itemService *services.ItemService, maxImageBytes int64) *ItemHandler {
	return &ItemHandler{itemService: itemService, maxImageBytes: maxImageBytes}
}

// List serves the public browse endpoint. Malformed query values fall back to
// defaults instead of failing the request.
func (h *ItemHandler) List(c *fiber.Ctx) error {
	resp, err := h.itemService.ListItems(c.UserContext(), services.RawListParams{
		Page:     c.Query("page"),
		Limit:    c.Query("limit"),
		Category: c.Query("category"),
		MinPrice: c.Query("minPrice"),
		MaxPrice: c.Query("maxPrice"),
		Search:   c.Query("search"),
		SortBy:   c.Query("sortBy"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *ItemHandler) Get(c *fiber.Ctx) error {
	id, err := itemID(c)
	if err != nil {
		return respondError(c, err)
	}

	resp, err := h.itemService.GetItem(c.UserContext(), id, middleware.IsAuthenticated(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *ItemHandler) Create(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req dto.CreateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	files, err := h.imageFiles(c)
	if err != nil {
		return respondError(c, err)
	}

	item, err := h.itemService.CreateItem(c.UserContext(), userID, req, files)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ItemEnvelope{
		Message: "Item created successfully",
		Item:    *item,
	})
}

func (h *ItemHandler) Update(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := itemID(c)
	if err != nil {
		return respondError(c, err)
	}

	var (
		req   dto.UpdateItemRequest
		files []services.ImageFile
	)
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return badBody(c)
		}
		req = updateRequestFromForm(form)
		if files, err = h.collectFiles(form); err != nil {
			return respondError(c, err)
		}
	} else if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
	}

	item, err := h.itemService.UpdateItem(c.UserContext(), id, userID, req, files)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ItemEnvelope{
		Message: "Item updated successfully",
		Item:    *item,
	})
}

func (h *ItemHandler) Delete(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := itemID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.itemService.DeleteItem(c.UserContext(), id, userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Item deleted successfully"})
}

func (h *ItemHandler) ToggleFavorite(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := itemID(c)
	if err != nil {
		return respondError(c, err)
	}

	resp, err := h.itemService.ToggleFavorite(c.UserContext(), id, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *ItemHandler) MarkSold(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := itemID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req dto.MarkSoldRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
	}

	if err := h.itemService.MarkSold(c.UserContext(), id, userID, req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Item marked as sold successfully"})
}

// imageFiles returns the uploaded images of a multipart request, or nil when
// the request is not multipart.
func (h *ItemHandler) imageFiles(c *fiber.Ctx) ([]services.ImageFile, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperr.New(apperr.CodeValidation, "Invalid request body")
	}
	return h.collectFiles(form)
}

func (h *ItemHandler) collectFiles(form *multipart.Form) ([]services.ImageFile, error) {
	headers := form.File[imagesField]
	if len(headers) > models.MaxImagesPerItem {
		return nil, apperr.Validation([]apperr.FieldError{{
			Field:   imagesField,
			Message: fmt.Sprintf("A listing can have at most %d images", models.MaxImagesPerItem),
		}})
	}

	var fields []apperr.FieldError
	files := make([]services.ImageFile, 0, len(headers))
	for _, fh := range headers {
		contentType := fh.Header.Get(fiber.HeaderContentType)
		switch {
		case !strings.HasPrefix(contentType, "image/"):
			fields = append(fields, apperr.FieldError{Field: imagesField, Message: fh.Filename + " is not an image"})
			continue
		case fh.Size > h.maxImageBytes:
			fields = append(fields, apperr.FieldError{Field: imagesField, Message: fh.Filename + " is too large"})
			continue
		}
		files = append(files, services.ImageFile{
			Filename:    fh.Filename,
			ContentType: contentType,
			Size:        fh.Size,
			Open:        opener(fh),
		})
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}
	return files, nil
}

func opener(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// updateRequestFromForm maps multipart values onto an update. Absent keys
// leave the field untouched.
func updateRequestFromForm(form *multipart.Form) dto.UpdateItemRequest {
	value := func(key string) *string {
		vs, ok := form.Value[key]
		if !ok || len(vs) == 0 {
			return nil
		}
		v := vs[0]
		return &v
	}

	req := dto.UpdateItemRequest{
		Title:       value("title"),
		Description: value("description"),
		Price:       value("price"),
		Category:    value("category"),
		Condition:   value("condition"),
		Tags:        value("tags"),
	}
	if vs, ok := form.Value["existingImages"]; ok {
		req.ExistingImages = dto.ParseImageList(vs)
	}
	return req
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// itemID parses the :id route param. A malformed id cannot name an item.
func itemID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.NotFound("Item not found")
	}
	return id, nil
}

func callerID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := middleware.CurrentUserID(c)
	if err != nil {
		return uuid.Nil, apperr.New(apperr.CodeAuthToken, "Token is not valid")
	}
	return id, nil
}
