package api

func (c *Client) CreateProduct(input CreateProductInput) (*Product, error) {
	data, err := c.post("/products", input)
	if err != nil {
		return nil, err
	}
	return decodeOne[Product](data)
}
