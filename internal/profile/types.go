package profile

// Profile is the complete record describing a person's professional presence.
type Profile struct {
	Name           string        `json:"name" validate:"required"`
	CurrentRole    string        `json:"current_role"`
	CurrentCompany string        `json:"current_company"`
	Location       string        `json:"location"`
	Skills         []string      `json:"skills" validate:"dive,required"`
	About          string        `json:"about"`
	Collaborations []string      `json:"collaborations" validate:"dive,required"`
	Products       []Product     `json:"products" validate:"dive"`
	Testimonials   []Testimonial `json:"testimonials" validate:"dive"`
}

// Product is an offering listed under "Lets Collaborate".
type Product struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"` // not rendered
}

// Testimonial is an endorsement attributed to Name.
type Testimonial struct {
	Name   string `json:"name" validate:"required"`
	Review string `json:"review" validate:"required"`
}

// Clone returns a deep copy of p. Nil slices stay nil.
func Clone(p Profile) Profile {
	cp := p
	if p.Skills != nil {
		cp.Skills = make([]string, len(p.Skills))
		copy(cp.Skills, p.Skills)
	}
	if p.Collaborations != nil {
		cp.Collaborations = make([]string, len(p.Collaborations))
		copy(cp.Collaborations, p.Collaborations)
	}
	if p.Products != nil {
		cp.Products = make([]Product, len(p.Products))
		copy(cp.Products, p.Products)
	}
	if p.Testimonials != nil {
		cp.Testimonials = make([]Testimonial, len(p.Testimonials))
		copy(cp.Testimonials, p.Testimonials)
	}
	return cp
}
