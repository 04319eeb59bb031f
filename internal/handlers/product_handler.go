package handlers

import (
	"katalog/internal/apperrors"
	"katalog/internal/flash"
	"katalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for the catalog and its admin pages.
type ProductHandler struct {
	responder
	productService *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(productService *services.ProductService, flashes flash.Store, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		responder:      newResponder(flashes, logger),
		productService: productService,
	}
}

// RegisterRoutes registers the public catalog routes and the admin routes
// behind guard.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, guard fiber.Handler) {
	router.Get("/", h.Index)
	router.Get("/detail/:id", h.Detail)

	admin := router.Group("/admin", guard)
	admin.Get("/list", h.List)
	admin.Get("/add-data", h.ShowCreate)
	admin.Post("/add", h.Create)
	admin.Get("/edit/:id", h.ShowEdit)
	admin.Post("/update/:id", h.Update)
	admin.Get("/delete/:id", h.Delete)
}

// Index handles the public catalog page listing every product.
func (h *ProductHandler) Index(c *fiber.Ctx) error {
	products, err := h.productService.GetAllProducts(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return h.render(c, "page/index", "Homepage", products)
}

// Detail shows one product, sending unknown IDs back to the index.
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	product, err := h.productService.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return c.Redirect("/")
		}
		return h.fail(c, err)
	}
	return h.render(c, "page/detail-product", product.Name, product)
}

// List handles the admin product table.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, err := h.productService.GetAllProducts(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return h.render(c, "page/table", "Product List", products)
}

// ShowCreate handles the empty add-product form.
func (h *ProductHandler) ShowCreate(c *fiber.Ctx) error {
	return h.render(c, "page/input", "Add Product", nil)
}

// Create handles the multipart add form. The image field is required.
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var req ProductRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	image, closeImage, err := formImage(c)
	if err != nil {
		return h.fail(c, err)
	}
	defer closeImage()

	if _, err := h.productService.CreateProduct(c.UserContext(), req.input(), image); err != nil {
		return h.fail(c, err)
	}
	return h.redirectWithFlash(c, "/admin/list", flash.Message{
		Type:    flash.TypeSuccess,
		Intro:   "Saved!",
		Message: "Product has been added successfully.",
	})
}

// ShowEdit handles the edit form, sending unknown IDs back to the list.
func (h *ProductHandler) ShowEdit(c *fiber.Ctx) error {
	product, err := h.productService.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return c.Redirect("/admin/list")
		}
		return h.fail(c, err)
	}
	return h.render(c, "page/edit-input", "Edit Product", product)
}

// Update handles the edit form. Without a new image the stored one is kept.
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	var req ProductRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	image, closeImage, err := formImage(c)
	if err != nil {
		return h.fail(c, err)
	}
	defer closeImage()

	if _, err := h.productService.UpdateProduct(c.UserContext(), c.Params("id"), req.input(), image); err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return h.redirectWithFlash(c, "/admin/list", flash.Message{
				Type:    flash.TypeDanger,
				Message: "Product not found",
			})
		}
		return h.fail(c, err)
	}
	return h.redirectWithFlash(c, "/admin/list", flash.Message{
		Type:    flash.TypeSuccess,
		Intro:   "Updated!",
		Message: "Product has been updated successfully.",
	})
}

// Delete removes the product and its image.
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.productService.DeleteProduct(c.UserContext(), id); err != nil {
		if !apperrors.Is(err, apperrors.KindNotFound) {
			h.logger.Error("failed to delete product", zap.String("product_id", id), zap.Error(err))
		}
		return h.redirectWithFlash(c, "/admin/list", flash.Message{
			Type:    flash.TypeDanger,
			Message: "Failed to delete product",
		})
	}
	return h.redirectWithFlash(c, "/admin/list", flash.Message{
		Type:    flash.TypeInfo,
		Message: "Product deleted successfully",
	})
}

// formImage opens the optional "image" file of a multipart request. The
// returned close func is always safe to call.
func formImage(c *fiber.Ctx) (*services.ImageUpload, func(), error) {
	noop := func() {}
	header, err := c.FormFile("image")
	if err != nil {
		// Not multipart, or no file attached.
		return nil, noop, nil
	}

	file, err := header.Open()
	if err != nil {
		return nil, noop, apperrors.Storage(err, "failed to read uploaded image")
	}
	return &services.ImageUpload{Filename: header.Filename, Content: file}, func() { file.Close() }, nil
}
