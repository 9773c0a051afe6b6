package sandbox

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/storefront/client/internal/domain/cart"
	"github.com/storefront/client/internal/domain/catalog"
)

var productSortColumns = map[string]string{
	"price":      "price",
	"rating":     "rating",
	"created_at": "created_at",
	"name":       "name",
}

func queryInt(c *gin.Context, key string, def int) int {
	if n, err := strconv.Atoi(c.Query(key)); err == nil && n >= 0 {
		return n
	}
	return def
}

func (s *Server) listProducts(c *gin.Context) {
	q := s.db.WithContext(c.Request.Context()).Model(&ProductModel{})
	if !strings.HasPrefix(c.FullPath(), "/admin") {
		q = q.Where("status = ?", catalog.StatusActive)
	} else if st := c.Query("status"); st != "" {
		q = q.Where("status = ?", st)
	}
	if cats := c.QueryArray("category"); len(cats) > 0 {
		q = q.Where("category IN ?", cats)
	}
	for key, column := range map[string]string{"sizes": "sizes", "colors": "colors"} {
		if vals := c.QueryArray(key); len(vals) > 0 {
			sub := s.db.Where(column+" LIKE ?", "%\""+vals[0]+"\"%")
			for _, v := range vals[1:] {
				sub = sub.Or(column+" LIKE ?", "%\""+v+"\"%")
			}
			q = q.Where(sub)
		}
	}
	if search := c.Query("search"); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if v, err := strconv.ParseFloat(c.Query("min_price"), 64); err == nil {
		q = q.Where("price >= ?", v)
	}
	if v, err := strconv.ParseFloat(c.Query("max_price"), 64); err == nil {
		q = q.Where("price <= ?", v)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	order := "id"
	if col, ok := productSortColumns[c.Query("sort_by")]; ok {
		order = col
		if c.Query("sort_order") == "1" {
			order += " DESC"
		}
	}
	skip := queryInt(c, "skip", 0)
	limit := queryInt(c, "limit", catalog.PageSize)
	if limit == 0 || limit > 100 {
		limit = catalog.PageSize
	}

	var rows []ProductModel
	if err := q.Order(order).Offset(skip).Limit(limit).Find(&rows).Error; err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	page := catalog.Page{
		Products: make([]catalog.Product, 0, len(rows)),
		Total:    int(total),
		HasNext:  int64(skip+len(rows)) < total,
		HasPrev:  skip > 0,
	}
	for i := range rows {
		page.Products = append(page.Products, rows[i].toDomain())
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) featuredProducts(c *gin.Context) {
	limit := queryInt(c, "limit", 8)
	var rows []ProductModel
	err := s.db.WithContext(c.Request.Context()).
		Where("featured = ? AND status = ?", true, catalog.StatusActive).
		Order("rating DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]catalog.Product, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var p ProductModel
	if err := s.db.WithContext(c.Request.Context()).First(&p, id).Error; err != nil {
		fail(c, http.StatusNotFound, "Product not found")
		return
	}
	c.JSON(http.StatusOK, p.toDomain())
}

func (s *Server) setProductStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !catalog.ValidStatus(req.Status) {
		fail(c, http.StatusBadRequest, "Invalid status")
		return
	}
	res := s.db.WithContext(c.Request.Context()).Model(&ProductModel{}).Where("id = ?", id).Update("status", req.Status)
	if res.Error != nil {
		fail(c, http.StatusInternalServerError, res.Error.Error())
		return
	}
	if res.RowsAffected == 0 {
		fail(c, http.StatusNotFound, "Product not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product status updated"})
}

// cartFor loads the user's cart with the backend-computed totals.
func (s *Server) cartFor(c *gin.Context, userID uint) (*cart.Cart, error) {
	var rows []CartItemModel
	err := s.db.WithContext(c.Request.Context()).Preload("Product").
		Where("user_id = ?", userID).Order("id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := &cart.Cart{Items: make([]cart.Item, 0, len(rows))}
	for i := range rows {
		out.Items = append(out.Items, rows[i].toDomain())
		out.ItemCount += rows[i].Quantity
	}
	totals := cart.Compute(out.ComputedSubtotal(), cart.ShippingStandard)
	out.Subtotal, out.ShippingCost, out.TaxAmount, out.TotalAmount = totals.Floats()
	return out, nil
}

func (s *Server) getCart(c *gin.Context) {
	out, err := s.cartFor(c, currentUser(c).ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, out)
}

type cartParams struct {
	ProductID uint
	Quantity  int
	Size      string
	Color     string
}

func bindCartParams(c *gin.Context, needQuantity bool) (cartParams, bool) {
	id, err := strconv.ParseUint(c.Query("product_id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusUnprocessableEntity, "product_id is required")
		return cartParams{}, false
	}
	p := cartParams{ProductID: uint(id), Size: c.Query("size"), Color: c.Query("color"), Quantity: 1}
	if needQuantity {
		q, err := strconv.Atoi(c.Query("quantity"))
		if err != nil || q < 0 {
			fail(c, http.StatusUnprocessableEntity, "quantity must be a non-negative integer")
			return cartParams{}, false
		}
		p.Quantity = q
	}
	return p, true
}

func (s *Server) findLine(c *gin.Context, userID uint, p cartParams) (*CartItemModel, error) {
	var line CartItemModel
	err := s.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND product_id = ? AND size = ? AND color = ?", userID, p.ProductID, p.Size, p.Color).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (s *Server) respondCart(c *gin.Context, msg string) {
	out, err := s.cartFor(c, currentUser(c).ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, cart.Mutation{Message: msg, Cart: out})
}

func (s *Server) addToCart(c *gin.Context) {
	p, ok := bindCartParams(c, true)
	if !ok {
		return
	}
	if p.Quantity == 0 {
		p.Quantity = 1
	}
	var product ProductModel
	if err := s.db.WithContext(c.Request.Context()).First(&product, p.ProductID).Error; err != nil {
		fail(c, http.StatusNotFound, "Product not found")
		return
	}

	uid := currentUser(c).ID
	line, err := s.findLine(c, uid, p)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		line = &CartItemModel{UserID: uid, ProductID: p.ProductID, Size: p.Size, Color: p.Color}
	case err != nil:
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if line.Quantity+p.Quantity > product.InventoryQuantity {
		fail(c, http.StatusBadRequest, "Not enough stock")
		return
	}
	line.Quantity += p.Quantity
	if err := s.db.WithContext(c.Request.Context()).Save(line).Error; err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondCart(c, "Item added to cart")
}

func (s *Server) updateCart(c *gin.Context) {
	p, ok := bindCartParams(c, true)
	if !ok {
		return
	}
	line, err := s.findLine(c, currentUser(c).ID, p)
	if err != nil {
		fail(c, http.StatusNotFound, "Item not in cart")
		return
	}
	db := s.db.WithContext(c.Request.Context())
	if p.Quantity == 0 {
		err = db.Delete(line).Error
	} else {
		err = db.Model(line).Update("quantity", p.Quantity).Error
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondCart(c, "Cart updated")
}

func (s *Server) removeFromCart(c *gin.Context) {
	p, ok := bindCartParams(c, false)
	if !ok {
		return
	}
	line, err := s.findLine(c, currentUser(c).ID, p)
	if err != nil {
		fail(c, http.StatusNotFound, "Item not in cart")
		return
	}
	if err := s.db.WithContext(c.Request.Context()).Delete(line).Error; err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondCart(c, "Item removed from cart")
}
