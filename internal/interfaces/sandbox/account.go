package sandbox

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/storefront/client/internal/domain/identity"
	"github.com/storefront/client/internal/domain/shared"
)

// makeDefault moves the default flag of the user's rows in model to id.
func makeDefault(tx *gorm.DB, model any, userID, id uint) error {
	if err := tx.Model(model).Where("user_id = ? AND id <> ?", userID, id).Update("is_default", false).Error; err != nil {
		return err
	}
	return tx.Model(model).Where("user_id = ? AND id = ?", userID, id).Update("is_default", true).Error
}

func (s *Server) listAddresses(c *gin.Context) {
	var rows []AddressModel
	if err := s.db.WithContext(c.Request.Context()).Where("user_id = ?", currentUser(c).ID).Order("id").Find(&rows).Error; err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]identity.Address, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	c.JSON(http.StatusOK, gin.H{"addresses": out})
}

func (s *Server) bindAddress(c *gin.Context) (identity.Address, bool) {
	var a identity.Address
	if err := c.ShouldBindJSON(&a); err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return a, false
	}
	if err := shared.Validate(a); err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return a, false
	}
	return a, true
}

func (s *Server) saveAddress(c *gin.Context, m *AddressModel, status int) {
	uid := currentUser(c).ID
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&AddressModel{}).Where("user_id = ? AND id <> ?", uid, m.ID).Count(&count).Error; err != nil {
			return err
		}
		// The first address is always the default one.
		if count == 0 {
			m.IsDefault = true
		}
		if err := tx.Save(m).Error; err != nil {
			return err
		}
		if m.IsDefault {
			return makeDefault(tx, &AddressModel{}, uid, m.ID)
		}
		return nil
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(status, gin.H{"address": m.toDomain()})
}

func (s *Server) createAddress(c *gin.Context) {
	a, ok := s.bindAddress(c)
	if !ok {
		return
	}
	m := addressModel(a)
	m.UserID = currentUser(c).ID
	s.saveAddress(c, &m, http.StatusCreated)
}

func (s *Server) updateAddress(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var existing AddressModel
	if err := s.db.WithContext(c.Request.Context()).Where("user_id = ? AND id = ?", currentUser(c).ID, id).First(&existing).Error; err != nil {
		fail(c, http.StatusNotFound, "Address not found")
		return
	}
	a, ok := s.bindAddress(c)
	if !ok {
		return
	}
	m := addressModel(a)
	m.ID, m.UserID = existing.ID, existing.UserID
	s.saveAddress(c, &m, http.StatusOK)
}

func (s *Server) setDefaultAddress(c *gin.Context) {
	s.setDefault(c, &AddressModel{}, "Address not found")
}

func (s *Server) deleteAddress(c *gin.Context) {
	s.deleteOwned(c, &AddressModel{}, "Address not found")
}

func (s *Server) setDefault(c *gin.Context, model any, notFound string) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	uid := currentUser(c).ID
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(model).Where("user_id = ? AND id = ?", uid, id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return makeDefault(tx, model, uid, id)
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		fail(c, http.StatusNotFound, notFound)
	case err != nil:
		fail(c, http.StatusInternalServerError, err.Error())
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Default updated"})
	}
}

func (s *Server) deleteOwned(c *gin.Context, model any, notFound string) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	res := s.db.WithContext(c.Request.Context()).Where("user_id = ? AND id = ?", currentUser(c).ID, id).Delete(model)
	if res.Error != nil {
		fail(c, http.StatusInternalServerError, res.Error.Error())
		return
	}
	if res.RowsAffected == 0 {
		fail(c, http.StatusNotFound, notFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}

func (s *Server) listPayments(c *gin.Context) {
	var rows []PaymentModel
	if err := s.db.WithContext(c.Request.Context()).Where("user_id = ?", currentUser(c).ID).Order("id").Find(&rows).Error; err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]identity.PaymentMethod, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	c.JSON(http.StatusOK, gin.H{"payments": out})
}

func (s *Server) createPayment(c *gin.Context) {
	var pm identity.PaymentMethod
	if err := c.ShouldBindJSON(&pm); err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := shared.Validate(pm); err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	m := paymentModel(pm)
	m.UserID = currentUser(c).ID
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&PaymentModel{}).Where("user_id = ?", m.UserID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			m.IsDefault = true
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		if m.IsDefault {
			return makeDefault(tx, &PaymentModel{}, m.UserID, m.ID)
		}
		return nil
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": m.toDomain()})
}

func (s *Server) setDefaultPayment(c *gin.Context) {
	s.setDefault(c, &PaymentModel{}, "Payment method not found")
}

func (s *Server) deletePayment(c *gin.Context) {
	s.deleteOwned(c, &PaymentModel{}, "Payment method not found")
}
