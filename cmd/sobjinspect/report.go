package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"sobjconv/internal/sobj"
)

func report(doc *sobj.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nodes: %d, Instances: %d, Meshes: %d, Joints: %d, Materials: %d, Animations: %d\n",
		len(doc.Hierarchy), len(doc.Instances), len(doc.Meshes), len(doc.Joints), len(doc.Materials), len(doc.Animations))

	section(&b, "Hierarchy", hierarchyTable(doc))
	section(&b, "Instances", instanceTable(doc))
	section(&b, "Meshes", meshTable(doc))
	section(&b, "Materials", materialTable(doc))
	section(&b, "Animations", animationTable(doc))
	return b.String()
}

func section(b *strings.Builder, title, table string) {
	if table == "" {
		return
	}
	fmt.Fprintf(b, "\n%s\n%s\n", title, table)
}

func hierarchyTable(doc *sobj.Document) string {
	if len(doc.Hierarchy) == 0 {
		return ""
	}
	parents := make(map[uint32]uint32)
	for id, n := range doc.Hierarchy {
		for _, c := range n.Children {
			parents[c] = uint32(id)
		}
	}

	rows := make([][]string, 0, len(doc.Hierarchy))
	for id, n := range doc.Hierarchy {
		parent := "-"
		if p, ok := parents[uint32(id)]; ok {
			parent = strconv.Itoa(int(p))
		}
		joint := "-"
		if n.JointID != nil {
			joint = strconv.Itoa(int(*n.JointID))
		}
		rows = append(rows, []string{
			strconv.Itoa(id), n.Name, parent, strconv.Itoa(len(n.Children)), joint, translation(n.Transform),
		})
	}
	return renderTable(
		[]string{"ID", "Name", "Parent", "Children", "Joint", "Translation"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}

func instanceTable(doc *sobj.Document) string {
	if len(doc.Instances) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(doc.Instances))
	for i, in := range doc.Instances {
		name := ""
		if int(in.MeshID) < len(doc.Meshes) {
			name = doc.Meshes[in.MeshID].Name
		}
		rows = append(rows, []string{strconv.Itoa(i), strconv.Itoa(int(in.MeshID)), name, translation(in.Transform)})
	}
	return renderTable(
		[]string{"#", "Mesh", "Name", "Translation"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
	)
}

func meshTable(doc *sobj.Document) string {
	if len(doc.Meshes) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(doc.Meshes))
	for i, m := range doc.Meshes {
		material := strconv.Itoa(int(m.MaterialID))
		if int(m.MaterialID) < len(doc.Materials) {
			material += " " + doc.Materials[m.MaterialID].Name
		}
		rows = append(rows, []string{
			strconv.Itoa(i), m.Name, material,
			strconv.Itoa(len(m.Vertices)), strconv.Itoa(len(m.Faces)), strconv.Itoa(len(m.Weights)),
			hasUV(m), bbox(m),
		})
	}
	return renderTable(
		[]string{"ID", "Name", "Material", "Vertices", "Faces", "Joints", "UV", "Size"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	)
}

func hasUV(m *sobj.Mesh) string {
	for _, v := range m.Vertices {
		if v.UV != nil {
			return "yes"
		}
	}
	return "no"
}

func bbox(m *sobj.Mesh) string {
	if len(m.Vertices) == 0 {
		return "-"
	}
	minX, minY, minZ := math.Inf(1), math.Inf(1), math.Inf(1)
	maxX, maxY, maxZ := math.Inf(-1), math.Inf(-1), math.Inf(-1)
	for _, v := range m.Vertices {
		x, y, z := float64(v.Position.X), float64(v.Position.Y), float64(v.Position.Z)
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		minZ, maxZ = math.Min(minZ, z), math.Max(maxZ, z)
	}
	return fmt.Sprintf("%.2f x %.2f x %.2f", maxX-minX, maxY-minY, maxZ-minZ)
}

func materialTable(doc *sobj.Document) string {
	if len(doc.Materials) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(doc.Materials))
	for i, m := range doc.Materials {
		shininess := "-"
		if m.Shininess != nil {
			shininess = strconv.FormatFloat(float64(*m.Shininess), 'g', 4, 32)
		}
		rows = append(rows, []string{
			strconv.Itoa(i), m.Name, shininess,
			textureCell(m.Diffuse), textureCell(m.Specular), textureCell(m.Normal), textureCell(m.Emissive),
		})
	}
	return renderTable(
		[]string{"ID", "Name", "Shininess", "Diffuse", "Specular", "Normal", "Emissive"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func textureCell(t *sobj.Texture) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%s %dB", t.Format, len(t.Data))
}

func animationTable(doc *sobj.Document) string {
	if len(doc.Animations) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(doc.Animations))
	for i, a := range doc.Animations {
		var pos, rot, scale int
		for _, ch := range a.Channels {
			pos += len(ch.PosFrames)
			rot += len(ch.RotFrames)
			scale += len(ch.ScaleFrames)
		}
		seconds := "-"
		if a.TPS > 0 {
			seconds = strconv.FormatFloat(float64(a.Duration/a.TPS), 'f', 2, 32)
		}
		rows = append(rows, []string{
			strconv.Itoa(i), a.Name,
			strconv.FormatFloat(float64(a.Duration), 'g', 6, 32),
			strconv.FormatFloat(float64(a.TPS), 'g', 6, 32),
			seconds,
			strconv.Itoa(len(a.Channels)),
			fmt.Sprintf("%d/%d/%d", pos, rot, scale),
		})
	}
	return renderTable(
		[]string{"ID", "Name", "Duration", "TPS", "Seconds", "Channels", "Keys (P/R/S)"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

// translation formats the last column of a row-stored matrix.
func translation(m sobj.Mat4) string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", m.A.W, m.B.W, m.C.W)
}
