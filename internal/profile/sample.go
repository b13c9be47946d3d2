package profile

const sampleBio = "Hi, my name is Adrian Brewer, I'm the Co-founder and Head of Design at BB agency. " +
	"Designer at heart. Head of Design might be an overstatement, but as with many 20 people agencies " +
	"I need to wear many different hats...."

// Sample returns the built-in demo record served by the mock source.
func Sample() Profile {
	return Profile{
		Name:           "Adrian Brewer",
		CurrentRole:    "Engineer",
		CurrentCompany: "BB Agency -Industry",
		Location:       "San Francisco, CA",
		Skills:         []string{"Product Management", "CX Strategy", "UX Strategy"},
		About:          sampleBio,
		Collaborations: []string{"coca cola"},
		Products: []Product{
			{Name: "Coca Cola", Description: "This is a Coca Cola product"},
			{Name: "Pepsi", Description: "This is a Pepsi product"},
		},
		Testimonials: []Testimonial{
			{Name: "John Doe", Review: sampleBio},
		},
	}
}
