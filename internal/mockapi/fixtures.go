package mockapi

import "ui2sql-backend/internal/models"

func table(name string, columns ...string) models.UIElement {
	return models.UIElement{
		Type: "table",
		Properties: map[string]interface{}{
			"name":    name,
			"columns": columns,
		},
	}
}

// SampleAnalysis returns a fresh copy on every call so callers may not share it.
func SampleAnalysis() *models.AnalysisResult {
	return &models.AnalysisResult{
		Elements: []models.UIElement{
			table("users", "id", "name", "email", "created_at"),
			table("products", "id", "name", "price", "description", "category_id"),
			table("orders", "id", "user_id", "total", "status", "created_at"),
			table("order_items", "id", "order_id", "product_id", "quantity", "price"),
		},
		Structure: models.StructureSummary{
			Layout:   "Database Schema",
			Sections: []string{"Users", "Products", "Orders"},
		},
	}
}

const SampleSQL = `-- Generated SQL Schema

CREATE TABLE users (
  id SERIAL PRIMARY KEY,
  name VARCHAR(255) NOT NULL,
  email VARCHAR(255) UNIQUE NOT NULL,
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE products (
  id SERIAL PRIMARY KEY,
  name VARCHAR(255) NOT NULL,
  price DECIMAL(10, 2) NOT NULL,
  description TEXT,
  category_id INTEGER REFERENCES categories(id),
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE orders (
  id SERIAL PRIMARY KEY,
  user_id INTEGER REFERENCES users(id),
  total DECIMAL(10, 2) NOT NULL,
  status VARCHAR(50) DEFAULT 'pending',
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE order_items (
  id SERIAL PRIMARY KEY,
  order_id INTEGER REFERENCES orders(id),
  product_id INTEGER REFERENCES products(id),
  quantity INTEGER NOT NULL,
  price DECIMAL(10, 2) NOT NULL,
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Indexes
CREATE INDEX idx_products_category ON products(category_id);
CREATE INDEX idx_orders_user ON orders(user_id);
CREATE INDEX idx_order_items_order ON order_items(order_id);
CREATE INDEX idx_order_items_product ON order_items(product_id);

-- Sample queries
SELECT
  o.id,
  u.name as customer,
  o.total,
  o.status,
  o.created_at
FROM orders o
JOIN users u ON o.user_id = u.id
WHERE o.created_at > NOW() - INTERVAL '30 days'
ORDER BY o.created_at DESC;`
