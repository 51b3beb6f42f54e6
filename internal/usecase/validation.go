package usecase

// maxOrderNumberLength bounds order references to the width of a card-style identifier.
const maxOrderNumberLength = 32

// ValidateOrderNumber reports whether number is a digit string passing the Luhn checksum.
func ValidateOrderNumber(number string) bool {
	if len(number) < 2 || len(number) > maxOrderNumberLength {
		return false
	}

	sum := 0
	for i := 0; i < len(number); i++ {
		c := number[len(number)-1-i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == 1 {
			if d *= 2; d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}
