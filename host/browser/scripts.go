package browser

// Scripts evaluated in the browser. Elements of the live document are found
// by the id attribute assigned when the document was loaded.

// scratchDocument is loaded into scratch page, standards mode like captured
// documents.
const scratchDocument = `<!DOCTYPE html><html><head></head><body></body></html>`

const jsComputedStyle = `(attr, id, pseudo) => {
	const el = document.querySelector('[' + attr + '="' + id + '"]');
	if (!el) {
		return null;
	}
	const cs = window.getComputedStyle(el, pseudo || null);
	const out = [];
	for (let i = 0; i < cs.length; i++) {
		const name = cs[i];
		out.push([name, cs.getPropertyValue(name), cs.getPropertyPriority(name)]);
	}
	return out;
}`

const jsDefaultStyle = `(tag) => {
	const el = document.createElement(tag);
	document.body.appendChild(el);
	const cs = window.getComputedStyle(el);
	const out = [];
	for (let i = 0; i < cs.length; i++) {
		const name = cs[i];
		out.push([name, cs.getPropertyValue(name), cs.getPropertyPriority(name)]);
	}
	el.remove();
	return out;
}`

const jsClientSize = `(attr, id) => {
	const el = document.querySelector('[' + attr + '="' + id + '"]');
	if (!el) {
		return null;
	}
	return [el.clientWidth, el.clientHeight];
}`

const jsLiveState = `(attr, id) => {
	const el = document.querySelector('[' + attr + '="' + id + '"]');
	if (!el) {
		return null;
	}
	const tag = el.tagName.toLowerCase();
	const hasValue = tag === 'input' || tag === 'textarea' || tag === 'select';
	return {
		value: hasValue ? String(el.value) : '',
		hasValue: hasValue,
		scrollLeft: Math.round(el.scrollLeft),
		scrollTop: Math.round(el.scrollTop),
	};
}`

const jsStyleSheets = `() => {
	const out = [];
	for (const sheet of Array.from(document.styleSheets)) {
		const base = sheet.href || document.baseURI;
		try {
			out.push({base: base, text: Array.from(sheet.cssRules).map(r => r.cssText).join('\n')});
		} catch (e) {
			out.push({base: base, text: '', error: String(e)});
		}
	}
	return out;
}`

const jsWaitImages = `() => Promise.all(Array.from(document.images).map(img => img.complete
	? Promise.resolve()
	: new Promise(resolve => { img.onload = resolve; img.onerror = resolve; })))`
