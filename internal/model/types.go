package model

// Product is a catalog item. ID is assigned at creation and never changes.
type Product struct {
	ID          string  `json:"id" gorm:"column:id;primaryKey"`
	Title       string  `json:"title" gorm:"column:title"`
	Description string  `json:"description" gorm:"column:description"`
	Price       float64 `json:"price" gorm:"column:price"`
}

func (Product) TableName() string { return "products" }

// Stock holds the available count for exactly one product.
type Stock struct {
	ProductID string `json:"product_id" gorm:"column:product_id;primaryKey"`
	Count     int    `json:"count" gorm:"column:count"`
}

func (Stock) TableName() string { return "stocks" }

// ProductWithStock is the API view of a product.
type ProductWithStock struct {
	Product
	Count int `json:"count"`
}

// CreateProduct is a validated creation request.
type CreateProduct struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Count       int     `json:"count"`
}

// ImportRow maps CSV column names to the raw cell values of one data line.
type ImportRow map[string]string

// ObjectCreatedEvent is the notification emitted by the object store after an upload.
type ObjectCreatedEvent struct {
	Records []ObjectRecord
}

type ObjectRecord struct {
	Bucket string
	// Key is URL-encoded the way the object store reports it.
	Key string
}

// QueueMessage is one delivery from the row queue.
type QueueMessage struct {
	ID   string
	Body []byte
}

// Notification is published to the notification topic.
type Notification struct {
	Subject    string
	Message    string
	Attributes map[string]string
}
