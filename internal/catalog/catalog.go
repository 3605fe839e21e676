// Package catalog holds the static test case banks and the deterministic
// synthesizer that assembles a run's test plan from them.
package catalog

import "fmt"

// Entry is one synthesized test case before execution. TestData is empty
// when the case needs no fixture.
type Entry struct {
	Type           string
	Name           string
	Description    string
	Severity       string
	ExpectedResult string
	TestData       string
}

func functionalTests(url string) []Entry {
	return []Entry{
		{Type: "functional", Name: "Page Load Verification", Description: "Verify the homepage loads within acceptable time", Severity: "critical", ExpectedResult: "Page loads in under 3 seconds", TestData: "URL: " + url},
		{Type: "functional", Name: "Navigation Menu Test", Description: "Test all navigation menu links are clickable and lead to correct pages", Severity: "high", ExpectedResult: "All links navigate correctly", TestData: "Check header, footer, sidebar nav"},
		{Type: "functional", Name: "Logo Click Redirect", Description: "Verify clicking logo returns to homepage", Severity: "medium", ExpectedResult: "Redirects to homepage"},
		{Type: "functional", Name: "Browser Back Button", Description: "Test browser back/forward navigation works correctly", Severity: "high", ExpectedResult: "Navigation history works"},
		{Type: "functional", Name: "Page Refresh State", Description: "Verify page state is maintained after refresh", Severity: "medium", ExpectedResult: "State persists or gracefully resets"},
		{Type: "functional", Name: "External Links", Description: "Verify external links open in new tab", Severity: "low", ExpectedResult: "Links open in new tab with rel=noopener"},
		{Type: "functional", Name: "Internal Links", Description: "Verify all internal links work without 404 errors", Severity: "high", ExpectedResult: "No broken links"},
		{Type: "functional", Name: "Image Loading", Description: "Verify all images load correctly without broken placeholders", Severity: "medium", ExpectedResult: "All images visible"},
		{Type: "functional", Name: "Form Submission - Valid Data", Description: "Submit form with valid data and verify success", Severity: "critical", ExpectedResult: "Form submits successfully", TestData: "Valid email, valid phone, required fields filled"},
		{Type: "functional", Name: "Form Submission - Empty Required Fields", Description: "Submit form with empty required fields", Severity: "high", ExpectedResult: "Validation errors shown", TestData: "Leave required fields empty"},
		{Type: "functional", Name: "Form Submission - Invalid Email", Description: "Submit form with invalid email format", Severity: "high", ExpectedResult: "Email validation error", TestData: "test@, @test.com, test"},
		{Type: "functional", Name: "Search Functionality", Description: "Test search with valid query", Severity: "high", ExpectedResult: "Relevant results displayed", TestData: "Common search terms"},
		{Type: "functional", Name: "Search - No Results", Description: "Test search with query returning no results", Severity: "medium", ExpectedResult: "No results message shown", TestData: "Random gibberish query"},
		{Type: "functional", Name: "Pagination Navigation", Description: "Test pagination controls work correctly", Severity: "high", ExpectedResult: "Pages navigate correctly", TestData: "Page 1, 2, last page"},
		{Type: "functional", Name: "Sort Functionality", Description: "Test sorting options change display order", Severity: "medium", ExpectedResult: "Items reorder correctly", TestData: "Ascending, descending, alphabetical"},
		{Type: "functional", Name: "Filter Functionality", Description: "Test filter options narrow results", Severity: "high", ExpectedResult: "Results filtered correctly", TestData: "Apply various filters"},
		{Type: "functional", Name: "Clear Filters", Description: "Test clear/reset filter button", Severity: "medium", ExpectedResult: "All filters cleared, full results shown"},
		{Type: "functional", Name: "Modal Open/Close", Description: "Test modal dialogs open and close correctly", Severity: "medium", ExpectedResult: "Modal opens/closes, backdrop works", TestData: "Click trigger, close button, outside click, ESC key"},
		{Type: "functional", Name: "Dropdown Selection", Description: "Test dropdown menus work correctly", Severity: "medium", ExpectedResult: "Options selectable, selection persists"},
		{Type: "functional", Name: "Tab Navigation", Description: "Test tabbed content switches correctly", Severity: "medium", ExpectedResult: "Tab content changes", TestData: "Click each tab"},
	}
}

var authTests = []Entry{
	{Type: "functional", Name: "Login - Valid Credentials", Description: "Login with valid username and password", Severity: "critical", ExpectedResult: "User logged in successfully", TestData: "Valid credentials"},
	{Type: "functional", Name: "Login - Invalid Password", Description: "Login with correct username but wrong password", Severity: "critical", ExpectedResult: "Error message shown", TestData: "Wrong password"},
	{Type: "functional", Name: "Login - Invalid Username", Description: "Login with non-existent username", Severity: "high", ExpectedResult: "Error message shown", TestData: "Nonexistent user"},
	{Type: "functional", Name: "Login - Empty Fields", Description: "Submit login form with empty fields", Severity: "high", ExpectedResult: "Validation error shown", TestData: "Empty username/password"},
	{Type: "functional", Name: "Logout Functionality", Description: "Test logout clears session and redirects", Severity: "critical", ExpectedResult: "User logged out, session cleared"},
	{Type: "functional", Name: "Session Persistence", Description: "Verify user stays logged in after page refresh", Severity: "high", ExpectedResult: "Session maintained"},
	{Type: "functional", Name: "Protected Route Access", Description: "Access protected page without login", Severity: "critical", ExpectedResult: "Redirect to login page", TestData: "Direct URL access"},
	{Type: "security", Name: "SQL Injection - Login", Description: "Attempt SQL injection in login form", Severity: "critical", ExpectedResult: "Input sanitized, attack blocked", TestData: `' OR '1'='1'; DROP TABLE users;--`},
	{Type: "security", Name: "XSS - Login Fields", Description: "Attempt XSS in login form fields", Severity: "critical", ExpectedResult: "Script not executed", TestData: `<script>alert("XSS")</script>`},
}

var otpTests = []Entry{
	{Type: "functional", Name: "OTP Input Display", Description: "Verify OTP input field appears after login credentials", Severity: "critical", ExpectedResult: "OTP input visible"},
	{Type: "functional", Name: "OTP - Valid Code", Description: "Enter valid OTP code", Severity: "critical", ExpectedResult: "Authentication successful", TestData: "Valid 6-digit code"},
	{Type: "functional", Name: "OTP - Invalid Code", Description: "Enter invalid OTP code", Severity: "high", ExpectedResult: "Error message shown", TestData: "Random 6-digit code"},
	{Type: "functional", Name: "OTP - Expired Code", Description: "Enter expired OTP code", Severity: "high", ExpectedResult: "Expiration error shown", TestData: "Old OTP code"},
	{Type: "functional", Name: "OTP - Retry Limit", Description: "Test OTP retry limit enforcement", Severity: "high", ExpectedResult: "Account locked after max attempts", TestData: "Multiple wrong attempts"},
	{Type: "functional", Name: "OTP - Resend Code", Description: "Test OTP resend functionality", Severity: "medium", ExpectedResult: "New code sent, old code invalidated"},
}

var uiTests = []Entry{
	{Type: "ui", Name: "Responsive - Mobile 320px", Description: "Test layout on 320px width mobile", Severity: "high", ExpectedResult: "Layout adapts correctly", TestData: "320x568 viewport"},
	{Type: "ui", Name: "Responsive - Mobile 375px", Description: "Test layout on 375px width mobile", Severity: "high", ExpectedResult: "Layout adapts correctly", TestData: "375x667 viewport"},
	{Type: "ui", Name: "Responsive - Tablet 768px", Description: "Test layout on tablet viewport", Severity: "high", ExpectedResult: "Layout adapts correctly", TestData: "768x1024 viewport"},
	{Type: "ui", Name: "Responsive - Desktop 1280px", Description: "Test layout on desktop viewport", Severity: "medium", ExpectedResult: "Layout displays correctly", TestData: "1280x720 viewport"},
	{Type: "ui", Name: "Responsive - Large Desktop 1920px", Description: "Test layout on large desktop", Severity: "medium", ExpectedResult: "Layout displays correctly", TestData: "1920x1080 viewport"},
	{Type: "ui", Name: "Touch Scrolling", Description: "Test touch scroll on mobile viewport", Severity: "medium", ExpectedResult: "Smooth scrolling", TestData: "Mobile viewport"},
	{Type: "ui", Name: "Hamburger Menu - Mobile", Description: "Test mobile hamburger menu opens/closes", Severity: "high", ExpectedResult: "Menu toggles correctly", TestData: "Mobile viewport"},
	{Type: "ui", Name: "Hover States", Description: "Verify hover states on interactive elements", Severity: "medium", ExpectedResult: "Visual feedback on hover", TestData: "Buttons, links, cards"},
	{Type: "ui", Name: "Focus States", Description: "Verify focus states on form elements", Severity: "high", ExpectedResult: "Visible focus indicator", TestData: "Input fields, buttons"},
	{Type: "ui", Name: "Loading States", Description: "Verify loading spinners/skeletons appear during data fetch", Severity: "medium", ExpectedResult: "Loading indicator visible", TestData: "Slow network simulation"},
	{Type: "ui", Name: "Empty States", Description: "Verify empty state messages when no data", Severity: "medium", ExpectedResult: "Helpful empty state message", TestData: "No data scenario"},
	{Type: "ui", Name: "Error States", Description: "Verify error messages are user-friendly", Severity: "high", ExpectedResult: "Clear error message", TestData: "Trigger error condition"},
	{Type: "ui", Name: "Toast Notifications", Description: "Verify toast/snackbar notifications appear and dismiss", Severity: "medium", ExpectedResult: "Toast appears and auto-dismisses", TestData: "Trigger success/error action"},
	{Type: "ui", Name: "Tooltip Display", Description: "Verify tooltips appear on hover", Severity: "low", ExpectedResult: "Tooltip visible with correct text", TestData: "Hover on info icons"},
}

var securityTests = []Entry{
	{Type: "security", Name: "XSS - Search Input", Description: "Attempt XSS injection in search field", Severity: "critical", ExpectedResult: "Script not executed", TestData: "<script>alert(1)</script>"},
	{Type: "security", Name: "XSS - Comment/Text Input", Description: "Attempt XSS in text area inputs", Severity: "critical", ExpectedResult: "Script not executed", TestData: "<img src=x onerror=alert(1)>"},
	{Type: "security", Name: "SQL Injection - Search", Description: "Attempt SQL injection in search", Severity: "critical", ExpectedResult: "Input sanitized", TestData: "'; SELECT * FROM users--"},
	{Type: "security", Name: "SQL Injection - URL Parameters", Description: "Attempt SQL injection via URL params", Severity: "critical", ExpectedResult: "Input sanitized", TestData: "?id=1 OR 1=1"},
	{Type: "security", Name: "CSRF Protection", Description: "Verify CSRF tokens are present on forms", Severity: "critical", ExpectedResult: "CSRF token included", TestData: "Inspect form elements"},
	{Type: "security", Name: "Sensitive Data in URL", Description: "Check for passwords/tokens in URL", Severity: "high", ExpectedResult: "No sensitive data in URL", TestData: "Inspect URL after actions"},
	{Type: "security", Name: "HTTPS Enforcement", Description: "Verify all requests use HTTPS", Severity: "critical", ExpectedResult: "All traffic encrypted", TestData: "Network inspection"},
	{Type: "security", Name: "Secure Cookie Flags", Description: "Verify cookies have Secure and HttpOnly flags", Severity: "high", ExpectedResult: "Proper cookie flags set", TestData: "Cookie inspection"},
	{Type: "security", Name: "Content Security Policy", Description: "Verify CSP headers are set", Severity: "high", ExpectedResult: "CSP header present", TestData: "Response headers"},
	{Type: "security", Name: "Clickjacking Protection", Description: "Verify X-Frame-Options or CSP frame-ancestors", Severity: "high", ExpectedResult: "Clickjacking prevented", TestData: "Response headers"},
}

var performanceTests = []Entry{
	{Type: "performance", Name: "First Contentful Paint", Description: "Measure FCP metric", Severity: "high", ExpectedResult: "FCP < 1.8s", TestData: "Lighthouse metrics"},
	{Type: "performance", Name: "Largest Contentful Paint", Description: "Measure LCP metric", Severity: "high", ExpectedResult: "LCP < 2.5s", TestData: "Lighthouse metrics"},
	{Type: "performance", Name: "Time to Interactive", Description: "Measure TTI metric", Severity: "high", ExpectedResult: "TTI < 3.8s", TestData: "Lighthouse metrics"},
	{Type: "performance", Name: "Cumulative Layout Shift", Description: "Measure CLS metric", Severity: "high", ExpectedResult: "CLS < 0.1", TestData: "Lighthouse metrics"},
	{Type: "performance", Name: "Total Blocking Time", Description: "Measure TBT metric", Severity: "medium", ExpectedResult: "TBT < 200ms", TestData: "Lighthouse metrics"},
	{Type: "performance", Name: "Image Optimization", Description: "Verify images are optimized and lazy-loaded", Severity: "medium", ExpectedResult: "Images properly sized and lazy-loaded", TestData: "Network waterfall"},
	{Type: "performance", Name: "JS Bundle Size", Description: "Check JavaScript bundle size", Severity: "medium", ExpectedResult: "Bundle < 500KB gzipped", TestData: "Network analysis"},
	{Type: "performance", Name: "API Response Time", Description: "Measure API response times", Severity: "high", ExpectedResult: "Response < 500ms", TestData: "Network timing"},
	{Type: "performance", Name: "Cache Headers", Description: "Verify proper cache headers on static assets", Severity: "medium", ExpectedResult: "Proper caching enabled", TestData: "Response headers"},
}

var accessibilityTests = []Entry{
	{Type: "accessibility", Name: "Keyboard Navigation - Tab Order", Description: "Verify logical tab order through page", Severity: "high", ExpectedResult: "Logical focus order", TestData: "Tab through page"},
	{Type: "accessibility", Name: "Keyboard Navigation - All Interactive", Description: "Verify all interactive elements keyboard accessible", Severity: "critical", ExpectedResult: "All elements reachable via keyboard", TestData: "Navigate without mouse"},
	{Type: "accessibility", Name: "Skip Links", Description: "Verify skip to main content link exists", Severity: "medium", ExpectedResult: "Skip link present and functional", TestData: "First tab press"},
	{Type: "accessibility", Name: "Image Alt Text", Description: "Verify all images have meaningful alt text", Severity: "high", ExpectedResult: "All images have alt attributes", TestData: "Inspect images"},
	{Type: "accessibility", Name: "Form Labels", Description: "Verify all form inputs have associated labels", Severity: "critical", ExpectedResult: "Labels associated with inputs", TestData: "Inspect form elements"},
	{Type: "accessibility", Name: "Color Contrast", Description: "Verify text color contrast meets WCAG AA (4.5:1)", Severity: "high", ExpectedResult: "Contrast ratio >= 4.5:1", TestData: "Contrast checker"},
	{Type: "accessibility", Name: "ARIA Landmarks", Description: "Verify proper ARIA landmark regions", Severity: "medium", ExpectedResult: "Main, nav, header, footer landmarks", TestData: "Accessibility tree"},
	{Type: "accessibility", Name: "Heading Hierarchy", Description: "Verify proper heading level hierarchy (h1-h6)", Severity: "medium", ExpectedResult: "No skipped heading levels", TestData: "Heading outline"},
	{Type: "accessibility", Name: "Focus Visible", Description: "Verify visible focus indicator on all focusable elements", Severity: "high", ExpectedResult: "Clear focus indicator", TestData: "Tab through elements"},
	{Type: "accessibility", Name: "Screen Reader - Links", Description: "Verify link text is descriptive for screen readers", Severity: "medium", ExpectedResult: `No "click here" or "read more" links`, TestData: "Link text audit"},
}

var dataValidationTests = []Entry{
	{Type: "data_validation", Name: "Record Count Verification", Description: "Verify total record count matches expected", Severity: "critical", ExpectedResult: "Count matches expected value", TestData: "Compare with expected count"},
	{Type: "data_validation", Name: "Pagination Data Integrity", Description: "Verify no records lost across pagination", Severity: "critical", ExpectedResult: "All records accessible via pagination", TestData: "Sum of all pages = total"},
	{Type: "data_validation", Name: "Search Returns All Matches", Description: "Verify search includes all matching records", Severity: "high", ExpectedResult: "Search count matches filter count", TestData: "Known search term"},
	{Type: "data_validation", Name: "Export Data Completeness", Description: "Verify export contains all records", Severity: "critical", ExpectedResult: "Export row count = total records", TestData: "Compare export to database"},
	{Type: "data_validation", Name: "Bulk Operation Completeness", Description: "Verify bulk update affects all selected records", Severity: "high", ExpectedResult: "All selected records updated", TestData: "Bulk edit 100 records"},
}

// Options selects which banks feed a synthesis.
type Options struct {
	URL         string
	TestType    string
	Count       int
	HasUsername bool
	HasOTP      bool
}

// Synthesize assembles exactly opts.Count entries. Type-relevant banks come
// first, the rest of the pool fills in by name, and variants pad the tail
// when the pool runs out.
func Synthesize(opts Options) []Entry {
	functional := functionalTests(opts.URL)

	var auth, otp []Entry
	if opts.HasUsername {
		auth = authTests
	}
	if opts.HasOTP {
		otp = otpTests
	}

	pool := make([]Entry, 0, len(functional)+len(auth)+len(otp)+len(uiTests)+len(securityTests)+len(performanceTests)+len(accessibilityTests))
	pool = append(pool, functional...)
	pool = append(pool, auth...)
	pool = append(pool, otp...)
	pool = append(pool, uiTests...)
	pool = append(pool, securityTests...)
	pool = append(pool, performanceTests...)
	pool = append(pool, accessibilityTests...)

	var cases []Entry
	switch opts.TestType {
	case "security":
		cases = append(cases, securityTests...)
		cases = append(cases, auth...)
	case "performance", "load":
		cases = append(cases, performanceTests...)
	case "accessibility":
		cases = append(cases, accessibilityTests...)
	case "data-integrity", "data-sync", "bulk-validation":
		cases = append(cases, dataValidationTests...)
	}

	seen := make(map[string]bool, len(cases))
	for _, c := range cases {
		seen[c.Name] = true
	}
	for _, c := range pool {
		if len(cases) >= opts.Count {
			break
		}
		if seen[c.Name] {
			continue
		}
		cases = append(cases, c)
		seen[c.Name] = true
	}

	// Pad with variants cycling the pool until the count is reached.
	for variant := 0; len(cases) < opts.Count; variant++ {
		base := pool[variant%len(pool)]
		cases = append(cases, Entry{
			Type:           base.Type,
			Name:           fmt.Sprintf("%s - Variant %d", base.Name, variant/len(pool)+1),
			Description:    base.Description + " (additional coverage)",
			Severity:       base.Severity,
			ExpectedResult: base.ExpectedResult,
			TestData:       base.TestData,
		})
	}

	return cases[:opts.Count]
}
